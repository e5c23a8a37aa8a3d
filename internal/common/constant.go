package common

// Storage keys. Every store owns exactly one key in the device key space.
const (
	AuthStoreName   = "students-reminder-auth"
	EventStoreName  = "students-reminder-events"
	SecretStoreName = "students-reminder-secret"
)

// UnknownUser is the display name returned when an event creator cannot be resolved.
const UnknownUser = "Unknown User"
