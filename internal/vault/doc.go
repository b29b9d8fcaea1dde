// Package vault stores a local identity in an encrypted file.
//
// Each identity lives in <dir>/<username>.me as IV||ciphertext: AES-256-CBC
// with PKCS#7 padding under SHA-256(username ":" hash). The file holds a
// JSON record of the identity keys, attributes, relationships, reactions
// and endorsements. An open Vault keeps the file key in a memguard locked
// buffer until Lock.
package vault
