package domain

import "time"

// Platform is the push transport a subscriber's device speaks.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

func (p Platform) IsValid() bool {
	switch p {
	case PlatformWeb, PlatformAndroid, PlatformIOS:
		return true
	}
	return false
}

// Subscriber is one registered push recipient. PushAddress is opaque to
// everything except the platform adapter: a JSON subscription descriptor
// (endpoint + p256dh + auth) for web, a bare device token for android/ios.
//
// The filter slices narrow which events the subscriber receives. An empty
// slice is a wildcard and matches every event. OnlyOngoing additionally
// suppresses any event whose incident is no longer ongoing.
//
// Subscribers are created and updated by the registration flow; this
// engine reads active ones and never mutates them.
type Subscriber struct {
	ID          string
	DeviceID    string
	Platform    Platform
	PushAddress string
	Active      bool
	RegionIDs   []string
	CountyIDs   []string
	CategoryIDs []string
	OnlyOngoing bool
	CreatedAt   time.Time
}
