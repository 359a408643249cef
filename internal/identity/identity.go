// Package identity supplies the authenticated-user boundary. Sign-in is
// mocked and deterministic: the vault only ever consumes the resulting
// identity ID as a storage partition key.
package identity

// Method identifies how the user signed in.
type Method string

const (
	MethodEmail  Method = "email"
	MethodGoogle Method = "Google"
	MethodGitHub Method = "GitHub"
)

// Identity is an authenticated user as reported by the provider. Opaque
// to the vault except for ID.
type Identity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl"`
	Provider  Method `json:"provider"`
}
