// Package classify decides a chat status from the pixels next to a name.
package classify

// Status is the color-derived presence state of the watched person.
type Status string

const (
	StatusGreen   Status = "green"
	StatusRed     Status = "red"
	StatusYellow  Status = "yellow"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)
