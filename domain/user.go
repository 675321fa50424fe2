// Package domain contains core concepts of the realtime hub.
// This file defines user identities as seen by the connection layer.
// No runtime, network, or storage logic should be added here.
package domain

import "strconv"

// UserID is the opaque identifier of an authenticated user.
// It is bound to a connection by the boundary layer and never changes afterwards.
type UserID int64

func (u UserID) String() string {
	return strconv.FormatInt(int64(u), 10)
}

// ParseUserID reads a decimal user id, as found in URL paths.
func ParseUserID(s string) (UserID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return UserID(id), nil
}

// Nobody never identifies a real user. Use it where "no exclusion" is meant.
const Nobody UserID = 0
