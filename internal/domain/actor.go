package domain

// Actor identifies the member performing an action together with the two
// capabilities the lifecycle machine evaluates. Staff gates status
// transitions; Privileged gates close (alongside ticket ownership) and
// panel posting.
type Actor struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
	Staff       bool
	Privileged  bool
}
