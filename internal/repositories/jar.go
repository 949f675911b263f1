package repositories

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// PersistentJar is an [http.CookieJar] that mirrors every cookie it accepts into a [CookieRepository].
//
// Matching and domain rules come from [cookiejar.Jar]; the repository only makes cookies outlive the process.
type PersistentJar struct {
	mu     sync.Mutex
	jar    *cookiejar.Jar
	repo   *CookieRepository
	logger *log.Logger
	now    func() time.Time
}

var _ http.CookieJar = (*PersistentJar)(nil)

// NewPersistentJar creates a jar preloaded with the unexpired cookies in repo.
func NewPersistentJar(repo *CookieRepository, logger *log.Logger) (*PersistentJar, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	j := &PersistentJar{jar: inner, repo: repo, logger: logger, now: time.Now}
	if err := j.load(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *PersistentJar) load() error {
	if _, err := j.repo.PurgeExpired(j.now()); err != nil {
		return err
	}

	stored, err := j.repo.List(j.now())
	if err != nil {
		return err
	}

	for _, sc := range stored {
		scheme := "http"
		if sc.Cookie.Secure {
			scheme = "https"
		}
		j.jar.SetCookies(&url.URL{Scheme: scheme, Host: sc.Host, Path: "/"}, []*http.Cookie{sc.Cookie})
	}

	j.logger.Debug("cookies loaded", "count", len(stored))
	return nil
}

// SetCookies implements [http.CookieJar]. Persistence failures are logged and never fail the request.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	host := u.Hostname()
	now := j.now()
	for _, c := range cookies {
		stored := *c
		if stored.Path == "" {
			stored.Path = defaultCookiePath(u)
		}
		if c.MaxAge > 0 {
			stored.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}

		var err error
		switch {
		case c.MaxAge < 0, !stored.Expires.IsZero() && !stored.Expires.After(now):
			err = j.repo.Delete(host, c.Name, stored.Path)
		default:
			err = j.repo.Save(host, &stored)
		}
		if err != nil {
			j.logger.Warn("failed to persist cookie", "host", host, "name", c.Name, "err", err)
		}
	}
}

// Cookies implements [http.CookieJar].
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// Clear forgets every cookie, in memory and on disk.
func (j *PersistentJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	inner, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	j.jar = inner
	return j.repo.Clear()
}

// defaultCookiePath is the path a cookie without a Path attribute is scoped to: the directory of the request URL.
func defaultCookiePath(u *url.URL) string {
	p := u.Path
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}
