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

package builder

import (
	"marketcore/constants"

	"github.com/quickfixgo/quickfix"
)

// --- Heartbeat (0) ---

// BuildHeartbeat creates a Heartbeat (0) message, optionally echoing a
// TestReqID when sent in response to a Test Request.
func BuildHeartbeat(testReqID, senderCompId, targetCompId string) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeHeartbeat, senderCompId, targetCompId)
	setStringIfNotEmpty(&m.Body, constants.TagTestReqID, testReqID)
	return m
}

// --- Test Request (1) ---

// BuildTestRequest creates a Test Request (1) message with a fresh TestReqID.
func BuildTestRequest(testReqID, senderCompId, targetCompId string) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeTestRequest, senderCompId, targetCompId)
	setString(&m.Body, constants.TagTestReqID, testReqID)
	return m
}

// --- Resend Request (2) ---

// BuildResendRequest creates a Resend Request (2) for the inclusive range
// [beginSeqNo, endSeqNo]. An endSeqNo of "0" means "through the most
// recently sent message", per the FIX 4.4 profile.
func BuildResendRequest(beginSeqNo, endSeqNo, senderCompId, targetCompId string) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeResendRequest, senderCompId, targetCompId)
	setString(&m.Body, constants.TagBeginSeqNo, beginSeqNo)
	setString(&m.Body, constants.TagEndSeqNo, endSeqNo)
	return m
}

// --- Logout (5) ---

// BuildLogout creates a Logout (5) message, optionally carrying a reason.
func BuildLogout(text, senderCompId, targetCompId string) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeLogout, senderCompId, targetCompId)
	setStringIfNotEmpty(&m.Body, constants.TagText, text)
	return m
}

// --- Security List Request (x) ---

// BuildSecurityListRequest creates a Security List Request (x) requesting
// the full instrument universe (SecurityListRequestType=4).
func BuildSecurityListRequest(securityReqID, senderCompId, targetCompId string) *quickfix.Message {
	m := quickfix.NewMessage()
	buildHeader(&m.Header, constants.MsgTypeSecurityListRequest, senderCompId, targetCompId)
	setString(&m.Body, constants.TagSecurityReqID, securityReqID)
	setString(&m.Body, constants.TagSecurityListRequestType, constants.SecurityListRequestTypeAll)
	return m
}
