// handlers/auth.go
package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"p9e.in/veritrace/middleware"
	"p9e.in/veritrace/models"
)

// Wallet sign-in methods offered next to email. They carry no email of
// their own, so one is derived from the method name.
var walletMethods = map[string]bool{
	"metamask":      true,
	"walletconnect": true,
	"eudi-wallet":   true,
	"ledger":        true,
}

type loginReq struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"companyName"`
	AuthMethod  string `json:"authMethod"`
}

// UserData is the identity the client keeps for the signed-in user.
type UserData struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	CompanyName string `json:"companyName"`
	DID         string `json:"did"`
	PublicKey   string `json:"publicKey"`
	IsVerified  bool   `json:"isVerified"`
	AuthMethod  string `json:"authMethod,omitempty"`
}

type loginResp struct {
	Token string   `json:"token"`
	User  UserData `json:"user"`
}

func userData(u models.User) UserData {
	return UserData{
		ID:          u.ID.String(),
		Email:       u.Email,
		CompanyName: u.CompanyName,
		DID:         u.DID,
		PublicKey:   u.PublicKey,
		IsVerified:  u.IsVerified,
		AuthMethod:  u.AuthMethod,
	}
}

// Login is the mock sign-in: any email is accepted, the first login mints
// a did:web identifier and a random public key for the user.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	method := strings.ToLower(strings.TrimSpace(req.AuthMethod))
	if method == "" {
		method = "email"
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	company := strings.TrimSpace(req.CompanyName)

	switch {
	case method == "email":
		if email == "" || !strings.Contains(email, "@") {
			writeError(w, http.StatusBadRequest, "a valid email is required")
			return
		}
		if company == "" {
			company = "Demo Company"
		}
	case walletMethods[method]:
		if email == "" {
			email = method + "@veritrace.eu"
		}
		if company == "" {
			company = "Web3 Company"
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported auth method %q", req.AuthMethod))
		return
	}

	key, err := randomPublicKey()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	u := models.User{
		Email:       email,
		CompanyName: company,
		DID:         fmt.Sprintf("did:web:%d.veritrace.eu", nextDIDStamp(a.now())),
		PublicKey:   key,
		AuthMethod:  method,
		IsVerified:  true,
	}
	if err := a.repo.UpsertUser(r.Context(), &u); err != nil {
		a.fail(w, r, err)
		return
	}

	token, err := a.auth.GenerateToken(u.ID.String(), u.Email, u.CompanyName, u.DID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	a.log.Info("user signed in", zap.String("user", u.ID.String()), zap.String("method", method))
	writeJSON(w, http.StatusOK, loginResp{Token: token, User: userData(u)})
}

// Profile returns the signed-in user's identity.
func (a *API) Profile(w http.ResponseWriter, r *http.Request) {
	u, err := a.repo.User(r.Context(), middleware.GetUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userData(u))
}

var lastDIDStamp atomic.Int64

// nextDIDStamp is now in unix millis, bumped past the previous stamp so two
// sign-ups in the same millisecond get distinct DIDs.
func nextDIDStamp(now time.Time) int64 {
	ms := now.UnixMilli()
	for {
		last := lastDIDStamp.Load()
		next := ms
		if next <= last {
			next = last + 1
		}
		if lastDIDStamp.CompareAndSwap(last, next) {
			return next
		}
	}
}

func randomPublicKey() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate public key: %w", err)
	}
	return "0x" + hex.EncodeToString(b), nil
}
