package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/utils"
)

const refreshCookie = "refreshToken"

// CookieConfig controls the session cookies.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	manager *auth.Manager
	cookies CookieConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(manager *auth.Manager, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{manager: manager, cookies: cookies}
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

type verifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) issue(flow auth.Flow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req phoneRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		if err := h.manager.IssueCode(c.UserContext(), flow, req.Phone); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true, "message": "verification code sent"})
	}
}

func (h *AuthHandler) verify(flow auth.Flow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req verifyRequest
		if err := parseBody(c, &req); err != nil {
			return err
		}
		session, err := h.manager.VerifyCode(c.UserContext(), flow, req.Phone, req.Code)
		if err != nil {
			return err
		}
		h.setCookies(c, session)
		return respond(c, session)
	}
}

// Register sends a registration code.
func (h *AuthHandler) Register(c *fiber.Ctx) error { return h.issue(auth.FlowRegister)(c) }

// VerifyRegister completes registration and opens a session.
func (h *AuthHandler) VerifyRegister(c *fiber.Ctx) error { return h.verify(auth.FlowRegister)(c) }

// Login sends a login code to a verified account.
func (h *AuthHandler) Login(c *fiber.Ctx) error { return h.issue(auth.FlowLogin)(c) }

// VerifyLogin opens a session for a verified account.
func (h *AuthHandler) VerifyLogin(c *fiber.Ctx) error { return h.verify(auth.FlowLogin)(c) }

// refreshToken reads the cookie first, then the JSON body. An empty body
// yields an empty token; a malformed one is rejected.
func refreshToken(c *fiber.Ctx) (string, error) {
	if token := c.Cookies(refreshCookie); token != "" {
		return token, nil
	}
	var req refreshRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return "", err
		}
	}
	return req.RefreshToken, nil
}

// Refresh rotates the token pair.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token, err := refreshToken(c)
	if err != nil {
		return err
	}
	session, err := h.manager.Refresh(c.UserContext(), token)
	if err != nil {
		h.clearCookies(c)
		return err
	}
	h.setCookies(c, session)
	return respond(c, session)
}

// Logout revokes the refresh token and clears the cookies.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, err := refreshToken(c)
	if err != nil {
		return err
	}
	h.manager.Logout(c.UserContext(), token)
	h.clearCookies(c)
	return c.JSON(fiber.Map{"success": true, "message": "logged out"})
}

// Me returns the authenticated account.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	cl, err := caller(c)
	if err != nil {
		return err
	}
	account, err := h.manager.Me(c.UserContext(), cl)
	if err != nil {
		return err
	}
	return respond(c, account)
}

// ListAccounts is the admin account listing.
func (h *AuthHandler) ListAccounts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	accounts, total, err := h.manager.ListAccounts(c.UserContext(), c.Query("search"), pg.Window())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": accounts, "pagination": pg.Meta(total)})
}

func (h *AuthHandler) setCookies(c *fiber.Ctx, session *auth.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessCookie,
		Value:    session.AccessToken,
		Path:     "/",
		MaxAge:   int(h.cookies.AccessTTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    session.RefreshToken,
		Path:     "/api/auth",
		MaxAge:   int(h.cookies.RefreshTTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *AuthHandler) clearCookies(c *fiber.Ctx) {
	for name, path := range map[string]string{middleware.AccessCookie: "/", refreshCookie: "/api/auth"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Path:     path,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HTTPOnly: true,
			Secure:   h.cookies.Secure,
		})
	}
}
