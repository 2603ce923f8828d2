package gsi

import "errors"

var (
	// ErrEmptyPayload is returned when a payload carried none of the recognized fields.
	// An empty object from the integration server means no match is active.
	ErrEmptyPayload = errors.New("payload carried no recognized game state")

	// ErrUnusableState is returned when a payload validated but had no usable time.
	ErrUnusableState = errors.New("game state carried no usable time field")

	// ErrNoRecentPush is returned by a push transport that has nothing fresh to hand out.
	ErrNoRecentPush = errors.New("no game state pushed recently")
)

// connectionFailedMessage is surfaced once a feed gives up on its endpoint.
const connectionFailedMessage = "could not read game state integration: " +
	"check the GSI config file in the game directory, " +
	"check that the local integration server is running, " +
	"and check that a match is active"
