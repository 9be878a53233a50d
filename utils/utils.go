/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package utils holds the small set of free functions the FIX client layer
// needs on top of quickfix's own FieldMap accessors: a tag-not-found-safe
// string getter, and the HMAC signature Coinbase Prime's FIX profile requires
// on Logon.
package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/quickfixgo/quickfix"
)

// GetString returns the value of tag from msg's body, falling back to the
// header, and returns "" instead of an error when the tag is absent — every
// call site here treats a missing optional field as empty, not fatal.
func GetString(msg *quickfix.Message, tag quickfix.Tag) string {
	if v, err := msg.Body.GetString(tag); err == nil {
		return v
	}
	if v, err := msg.Header.GetString(tag); err == nil {
		return v
	}
	return ""
}

// Sign computes the Coinbase Prime FIX Logon signature: a base64-encoded
// HMAC-SHA256 over "timestamp|msgType|seqNum|apiKey|targetCompId|passphrase"
// keyed by the base64-decoded api secret.
// https://docs.cdp.coinbase.com/prime/fix-api/admin-messages
func Sign(timestamp, msgType, seqNum, apiKey, targetCompId, passphrase, apiSecret string) string {
	secretBytes, err := base64.StdEncoding.DecodeString(apiSecret)
	if err != nil {
		// Secrets provisioned outside base64 (e.g. test fixtures) are signed
		// over their raw bytes instead of failing closed.
		secretBytes = []byte(apiSecret)
	}

	parts := []string{timestamp, msgType, seqNum, apiKey, targetCompId, passphrase}
	message := strings.Join(parts, "|")

	mac := hmac.New(sha256.New, secretBytes)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
