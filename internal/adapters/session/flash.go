// Package session provides cookie-backed flash messages.
package session

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/0xcro3dile/graphrag-web/internal/domain/entities"
)

const cookieName = "graphrag-web"

// categories are popped in this order.
var categories = []string{"danger", "warning", "info"}

// CookieFlashStore keeps flash messages in a cookie signed with the app secret.
type CookieFlashStore struct {
	store *sessions.CookieStore
}

// NewCookieFlashStore creates a flash store keyed by secret.
func NewCookieFlashStore(secret string) *CookieFlashStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieFlashStore{store: store}
}

// Add queues a flash for the next request.
func (s *CookieFlashStore) Add(w http.ResponseWriter, r *http.Request, flash entities.Flash) error {
	sess, err := s.get(r)
	if err != nil {
		return err
	}
	sess.AddFlash(flash.Message, flash.Category)
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("saving flash: %w", err)
	}
	return nil
}

// Pop returns and clears pending flashes. It must run before the response body is written.
func (s *CookieFlashStore) Pop(w http.ResponseWriter, r *http.Request) ([]entities.Flash, error) {
	sess, err := s.get(r)
	if err != nil {
		return nil, err
	}

	var flashes []entities.Flash
	for _, category := range categories {
		for _, v := range sess.Flashes(category) {
			msg, ok := v.(string)
			if !ok {
				continue
			}
			flashes = append(flashes, entities.Flash{Category: category, Message: msg})
		}
	}
	if len(flashes) == 0 {
		return nil, nil
	}
	if err := sess.Save(r, w); err != nil {
		return flashes, fmt.Errorf("clearing flashes: %w", err)
	}
	return flashes, nil
}

// get returns the request session. A tampered or stale cookie yields a fresh session.
func (s *CookieFlashStore) get(r *http.Request) (*sessions.Session, error) {
	sess, err := s.store.Get(r, cookieName)
	if sess == nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}
