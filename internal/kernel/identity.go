package kernel

import "github.com/roach88/thisme/internal/cipher"

// Identity holds the public identity fields of the identity-bearing variant.
type Identity struct {
	Username     string `json:"username"`
	IdentityRoot string `json:"identity_root"`
	PublicKey    string `json:"public_key"`
	IdentityHash string `json:"identity_hash"`
}

// DeriveIdentity computes identity fields from a normalized username and
// root secret. The secret only influences IdentityRoot; PublicKey and
// IdentityHash are derived from public material.
func DeriveIdentity(username, secret string) Identity {
	root := cipher.BlobPrefix + cipher.Keccak256Hex(secret+username)
	public := cipher.BlobPrefix + cipher.Keccak256Hex(root+"::public")
	return Identity{
		Username:     username,
		IdentityRoot: root,
		PublicKey:    public,
		IdentityHash: cipher.BlobPrefix + cipher.Keccak256Hex(username+"::"+public),
	}
}
