// Package room defines the canonical room identity for a conversation.
//
// Both the delivery path and the websocket join handler derive room tokens
// through this one function, so client and server can never disagree on
// which room a conversation lives in.
package room

import "strconv"

// Token maps (publication, user pair) to its room identifier. The two user
// ids are order-independent: Token(p, a, b) == Token(p, b, a). Ids are
// positive integers, so the dash-separated form is collision-free.
func Token(publicationID, userA, userB int64) string {
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}
	return strconv.FormatInt(publicationID, 10) + "-" +
		strconv.FormatInt(lo, 10) + "-" +
		strconv.FormatInt(hi, 10)
}
