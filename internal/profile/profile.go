package profile

// Profile holds the editable part of a user account. The numeric
// fields are pointers, a profile saved without e.g. height keeps
// that column null instead of zero.
type Profile struct {
	UserID int      `json:"userId"`
	Email  string   `json:"email"`
	Name   *string  `json:"name"`
	Age    *int     `json:"age"`
	Weight *float64 `json:"weight"`
	Height *float64 `json:"height"`
	Gender *string  `json:"gender"`
}
