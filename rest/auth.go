// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package rest

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator checks HTTP basic auth credentials against a bcrypt hash,
// so the daemon never keeps the password itself.
type Authenticator struct {
	user  string
	hash  []byte
	realm string
}

// NewAuthenticator hashes password for user.
func NewAuthenticator(user, password string) (*Authenticator, error) {
	hash, e := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if e != nil {
		return nil, e
	}
	return NewAuthenticatorHash(user, hash), nil
}

// NewAuthenticatorHash uses an existing bcrypt hash.
func NewAuthenticatorHash(user string, hash []byte) *Authenticator {
	return &Authenticator{user: user, hash: hash, realm: "zkensemble"}
}

// Check reports whether the request carries valid credentials.
func (a *Authenticator) Check(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.hash, []byte(pass)) == nil
}

// Challenge writes a 401 asking for credentials.
func (a *Authenticator) Challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+a.realm+`"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
