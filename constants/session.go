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

package constants

import "github.com/quickfixgo/quickfix"

// --- Session-Level Message Types (carried beyond the teacher's MD-only set) ---
const (
	MsgTypeHeartbeat          = "0" // Heartbeat
	MsgTypeTestRequest        = "1" // Test Request
	MsgTypeResendRequest      = "2" // Resend Request
	MsgTypeLogout             = "5" // Logout
	MsgTypeSecurityListRequest = "x" // Security List Request
	MsgTypeSecurityList        = "y" // Security List
)

// --- Security List Request Type (Tag 559) ---
const (
	SecurityListRequestTypeSymbol = "0" // request for a specific symbol
	SecurityListRequestTypeAll    = "4" // request for all symbols
)

// --- Additional Standard FIX Tags used by the session state machine and
// security-list handling, beyond the market-data-only set the teacher's
// client needed. ---
var (
	TagTestReqID      = quickfix.Tag(112)
	TagBeginSeqNo      = quickfix.Tag(7)
	TagEndSeqNo        = quickfix.Tag(16)
	TagNewSeqNo        = quickfix.Tag(36)
	TagPossDupFlag     = quickfix.Tag(43)
	TagGapFillFlag     = quickfix.Tag(123)
	TagOrigSendingTime = quickfix.Tag(122)
	TagResetSeqNumFlag = quickfix.Tag(141)

	TagSecurityReqID          = quickfix.Tag(320)
	TagSecurityResponseID     = quickfix.Tag(322)
	TagSecurityRequestType    = quickfix.Tag(321)
	TagSecurityListRequestType = quickfix.Tag(559)
	TagSecurityResponseType   = quickfix.Tag(323)
	TagNoRelatedSymSecurity   = quickfix.Tag(146)
	TagMinPriceIncrement      = quickfix.Tag(969)
	TagSecurityID             = quickfix.Tag(48)
	TagSymbolSfx              = quickfix.Tag(65)

	// TagMdEntryUpdateAction carries the incremental-refresh action (New,
	// Change, Delete) the teacher's MD-only client never needed to read.
	TagMdEntryUpdateAction = quickfix.Tag(279)
)

// --- MD Entry Update Action (Tag 279, incremental refresh only) ---
const (
	MdUpdateActionNew    = "0"
	MdUpdateActionChange = "1"
	MdUpdateActionDelete = "2"
)
