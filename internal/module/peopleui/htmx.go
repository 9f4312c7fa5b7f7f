package peopleui

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/simp-lee/peopleadmin/internal/screen"
	"github.com/simp-lee/peopleadmin/internal/session"
)

// navigator records where a screen asked to go.
type navigator struct {
	target string
}

func (n *navigator) Replace(path string) { n.target = path }

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// redirect sends the user to path. htmx gets HX-Redirect; other clients a 303.
// Queued toasts are left for the next page.
func redirect(c *gin.Context, path string) {
	if isHTMX(c) {
		c.Header("HX-Redirect", path)
		c.Status(http.StatusOK)
		return
	}
	c.Redirect(http.StatusSeeOther, path)
}

// flushToasts moves queued toasts into the HX-Trigger header of an htmx
// response. For other requests the toasts stay queued.
func flushToasts(c *gin.Context, sess *session.Session) {
	if !isHTMX(c) {
		return
	}
	toasts := sess.Drain()
	if len(toasts) == 0 {
		return
	}
	setShowToastHeader(c, toasts)
}

// setShowToastHeader sets HX-Trigger to a showToast event carrying toasts.
func setShowToastHeader(c *gin.Context, toasts []screen.Toast) {
	trigger, err := json.Marshal(map[string][]screen.Toast{"showToast": toasts})
	if err != nil {
		return
	}
	c.Header("HX-Trigger", string(trigger))
}
