package routes

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/reliefworks/formsync/app"
	"github.com/reliefworks/formsync/httpx"
	"github.com/reliefworks/formsync/log"
)

var refreshHeader = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

// Login exchanges HTTP basic credentials for a bearer token pair by
// translating the request into an OAuth password grant.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		grant := url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}
		req, err := grantRequest(grant)
		if err != nil {
			httpx.LogInternalError(w, "login.new_request", err)
			return
		}
		app.UserCredentials(w, req)
	}
}

// Refresh trades the token in an `Authorization: Refresh <token>` header
// for a fresh pair, going through the same OAuth grant machinery.
func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := refreshHeader.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		grant := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {match[1]},
		}
		req, err := grantRequest(grant)
		if err != nil {
			httpx.LogInternalError(w, "refresh.new_request", err)
			return
		}

		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, req)
		resp.Flush(w)
	}
}

func grantRequest(grant url.Values) (*http.Request, error) {
	body := grant.Encode()
	req, err := http.NewRequest("POST", "/", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))
	return req, nil
}
