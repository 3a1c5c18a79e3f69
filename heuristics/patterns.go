// Package heuristics contains the page-level decision rules the traversal
// engine applies to sites whose markup is never known in advance. All rules
// are driven by ordered, immutable pattern tables; order encodes priority.
package heuristics

import (
	"strings"

	"github.com/draphael123/Evaluation-Tracker/browser"
)

// BlockCategory labels a condition that requires human intervention.
type BlockCategory string

const (
	BlockTwoFactor         BlockCategory = "two_factor"
	BlockEmailVerification BlockCategory = "email_verification"
	BlockSMSVerification   BlockCategory = "sms_verification"
	BlockCaptcha           BlockCategory = "captcha"
	BlockLoginRequired     BlockCategory = "login_required"
	BlockAccountWall       BlockCategory = "account_wall"

	// BlockVerificationInput is the catch-all for DOM probe hits that no
	// text pattern explained.
	BlockVerificationInput BlockCategory = "verification_input"
)

type blockerPattern struct {
	category BlockCategory
	phrases  []string
}

// blockerPatterns is evaluated in order; the first matching category wins.
var blockerPatterns = []blockerPattern{
	{BlockTwoFactor, []string{
		"two-factor", "two factor", "2fa", "6-digit code", "digit code",
		"authentication code", "authenticator app", "enter the code",
	}},
	{BlockEmailVerification, []string{
		"verify your email", "check your email", "confirmation email",
		"verification email", "verification link",
	}},
	{BlockSMSVerification, []string{
		"verify your phone", "sms code", "text message with a code",
		"code sent to your phone", "code we texted",
	}},
	{BlockCaptcha, []string{
		"captcha", "recaptcha", "hcaptcha", "i'm not a robot",
		"prove you are human", "verify you are human",
	}},
	{BlockLoginRequired, []string{
		"log in to continue", "sign in to continue", "please log in",
		"please sign in", "session expired",
	}},
	{BlockAccountWall, []string{
		"create an account to continue", "account required",
		"members only", "membership required",
	}},
}

type blockerProbe struct {
	sel    browser.Selector
	reason string
}

// blockerProbes are DOM shapes strongly associated with verification
// widgets. A visible hit blocks even when the page text is silent.
var blockerProbes = []blockerProbe{
	{browser.CSS(`input[autocomplete="one-time-code"]`), "one-time-code input present"},
	{browser.CSS(`input[name*="otp"], input[id*="otp"]`), "OTP input present"},
	{browser.CSS(`input[name*="verification"], input[id*="verification"]`), "verification input present"},
	{browser.CSS(`iframe[src*="recaptcha"], iframe[src*="hcaptcha"]`), "CAPTCHA widget present"},
	{browser.CSS(`[class*="captcha"]`), "CAPTCHA widget present"},
}

// stopPatterns mark controls that lead out of the evaluable flow (signup,
// checkout, payment). Such gates end traversal and are never clicked.
var stopPatterns = []string{
	"sign up", "signup", "sign in", "log in", "login", "register",
	"create account", "create an account", "checkout", "buy now",
	"purchase", "subscribe", "add to cart", "schedule", "book now",
	"payment", "pay now",
}

// terminalPhrases in the page body mark a confirmation / thank-you page.
var terminalPhrases = []string{
	"thank you", "thanks for", "confirmation number", "order confirmed",
	"successfully submitted", "submission received", "assessment complete",
	"you're all set", "you are all set", "all done", "we'll be in touch",
	"we will be in touch",
}

// nextPatterns rank advance-control labels: primary CTAs first, generic
// advancers next, terminal confirmers last.
var nextPatterns = []string{
	// primary CTAs
	"get started", "start now", "start", "begin", "take the quiz",
	"take quiz", "let's go",
	// generic advancers
	"continue", "next", "proceed", "go on", "onward",
	// terminal confirmers
	"submit", "finish", "done", "complete", "send",
}

// navFallbackSelectors are structural last resorts when no phrase matched.
var navFallbackSelectors = []string{
	`button[type="submit"], input[type="submit"]`,
	`[class*="primary"]`,
	`[class*="cta"]`,
	`[class*="next"]`,
	`[class*="continue"]`,
	`[class*="submit"]`,
}

// matchesAny reports whether text contains any of the phrases,
// case-insensitively.
func matchesAny(text string, phrases []string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// truncate shortens s to at most n runes for audit values.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
