// Administrative endpoints.
//
// This file implements the two operator operations:
//   - DELETE /messages/:id   (remove a wish by full id or unique hex prefix)
//   - POST   /wishes/import  (bulk seed, guarded by the separate seed token)
//
// Both fail closed: when the corresponding secret is unset the endpoint
// answers 503 rather than allowing anything through. In development mode the
// deletion capability additionally accepts the mooky_admin cookie so local
// testing does not require header tooling.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mooky-live/wishes-backend/internal/auth"
	"github.com/mooky-live/wishes-backend/internal/http/middleware"
	"github.com/mooky-live/wishes-backend/internal/services"
)

// DeleteWishResponse confirms a deletion and names the full id that was
// removed, which may differ from the request parameter when a prefix was
// supplied.
type DeleteWishResponse struct {
	OK      bool   `json:"ok"`
	Deleted string `json:"deleted"`
}

// ImportRequest is the bulk seed payload. Items missing an id or timestamp
// get server-assigned values; items with empty messages are skipped.
type ImportRequest struct {
	Wishes []ImportItem `json:"wishes"`
}

// ImportItem is one seeded wish.
type ImportItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ImportResponse reports how many wishes were actually inserted; duplicates
// of existing ids are not counted.
type ImportResponse struct {
	OK       bool `json:"ok"`
	Inserted int  `json:"inserted"`
}

// adminCookie reads the development admin cookie, returning "" when absent.
func adminCookie(c *gin.Context) string {
	v, err := c.Cookie(auth.DevCookieName)
	if err != nil {
		return ""
	}
	return v
}

// DeleteWish removes a wish by exact id or unique 6-32 character hex prefix.
// 401 on bad credentials, 404 when nothing matches, 409 when a prefix
// matches more than one wish, 503 when the admin secret is unconfigured.
func (h *Handlers) DeleteWish(c *gin.Context) {
	if err := h.admin.Authorize(c.GetHeader(auth.HeaderAdminPass), adminCookie(c)); err != nil {
		if errors.Is(err, auth.ErrUnconfigured) {
			fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "admin deletion not configured")
			return
		}
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid admin credentials")
		return
	}

	idOrPrefix := c.Param("id")
	deleted, err := h.svc.Delete(c.Request.Context(), idOrPrefix)
	if err != nil {
		status, code, msg := deleteStatus(err)
		fail(c, status, code, msg)
		return
	}

	middleware.LoggerFrom(c).Info().Str("wish_id", deleted).Msg("wish deleted")
	ok(c, http.StatusOK, DeleteWishResponse{OK: true, Deleted: deleted})
}

// ImportWishes bulk-inserts seeded wishes. Existing ids are left untouched
// and the response counts only rows actually inserted.
func (h *Handlers) ImportWishes(c *gin.Context) {
	if err := h.seed.Authorize(c.GetHeader(auth.HeaderSeedToken)); err != nil {
		if errors.Is(err, auth.ErrUnconfigured) {
			fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "import not configured")
			return
		}
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid seed token")
		return
	}

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	items := make([]services.ImportWish, 0, len(req.Wishes))
	for _, it := range req.Wishes {
		items = append(items, services.ImportWish{
			ID:        it.ID,
			Name:      it.Name,
			Message:   it.Message,
			CreatedAt: it.CreatedAt,
		})
	}

	inserted, err := h.svc.Import(c.Request.Context(), items)
	if err != nil {
		if errors.Is(err, services.ErrEmptyImport) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no wishes to import")
			return
		}
		fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "import failed")
		return
	}

	middleware.LoggerFrom(c).Info().Int("inserted", inserted).Msg("wishes imported")
	ok(c, http.StatusOK, ImportResponse{OK: true, Inserted: inserted})
}
