// Package password verifies and hashes account passwords.
//
// New hashes are Argon2id in PHC form:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Bcrypt hashes ($2a$, $2b$, $2y$) from older accounts still verify, and
// NeedsRehash reports them so the engine can upgrade on the next login.
// Both algorithms come from golang.org/x/crypto.
//
// This package never logs or stores plaintext.
package password
