package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"postdesk/pkg/config"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const oauthStateKey = "oauth_state"

func AuthRequired(c *gin.Context) {
	if _, ok := sessionToken(c); !ok {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		} else {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
		}
		return
	}
	c.Next()
}

func LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", nil)
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func GithubLogin(c *gin.Context) {
	state, err := newState()
	if err != nil {
		c.String(http.StatusInternalServerError, "Could not start login")
		return
	}
	session := sessions.Default(c)
	session.Set(oauthStateKey, state)
	if err := session.Save(); err != nil {
		c.String(http.StatusInternalServerError, "Could not start login")
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, config.OauthConf.AuthCodeURL(state, oauth2.AccessTypeOffline))
}

func AuthCallback(c *gin.Context) {
	session := sessions.Default(c)
	want, _ := session.Get(oauthStateKey).(string)
	if want == "" || c.Query("state") != want {
		c.String(http.StatusBadRequest, "Invalid OAuth state")
		return
	}
	session.Delete(oauthStateKey)

	token, err := config.OauthConf.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		c.String(http.StatusInternalServerError, "OAuth Exchange Failed")
		return
	}

	session.Set("access_token", token.AccessToken)
	if err := session.Save(); err != nil {
		c.String(http.StatusInternalServerError, "Session save failed")
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/login")
}
