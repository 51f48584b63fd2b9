package domain

type User struct {
	ID        string
	Name      string
	AvatarURL string
	Bio       string
	Verified  bool
	Rating    float64
}
