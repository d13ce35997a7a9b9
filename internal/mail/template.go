// template.go
//
// Plain-text message templates. Placeholders are written %%name%%; whatever
// is still unresolved after substitution is stripped from the output.
package mail

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type template struct {
	subject string
	body    string
}

var welcomeTemplate = template{
	subject: "Welcome to Blog!",
	body: "Hi %%firstName%%,\n\n" +
		"Welcome to Blog! Your account has been created successfully.\n\n" +
		"You can now log in and start writing.\n\n" +
		"Best regards,\nBlog Team",
}

var resetTemplate = template{
	subject: "Password Reset Request - Blog",
	body: "Hi %%firstName%%,\n\n" +
		"You requested a password reset for your Blog account.\n\n" +
		"Click the link below to choose a new password:\n\n" +
		"%%url%%\n\n" +
		"This link expires in %%expiresIn%% and can only be used once. " +
		"If you did not request a reset, ignore this email and your password will remain unchanged.",
}

// ownedKeys are filled in by the mailer itself; callers can't override them.
var ownedKeys = map[string]bool{"url": true, "toEmail": true, "expiresIn": true}

var leftover = regexp.MustCompile(`%%\w+%%`)

// render substitutes caller vars (minus owned keys) and then owned values.
func (t template) render(vars, owned map[string]string) (subject, body string) {
	pairs := make([]string, 0, 2*(len(vars)+len(owned)))
	for k, v := range vars {
		if !ownedKeys[k] {
			pairs = append(pairs, "%%"+k+"%%", v)
		}
	}
	for k, v := range owned {
		pairs = append(pairs, "%%"+k+"%%", v)
	}
	r := strings.NewReplacer(pairs...)
	return leftover.ReplaceAllString(r.Replace(t.subject), ""), leftover.ReplaceAllString(r.Replace(t.body), "")
}

// humanDuration renders an expiry the way the reset email states it: "1 hour", "30 minutes".
func humanDuration(d time.Duration) string {
	n, unit := int(d.Minutes()), "minute"
	switch {
	case d >= 24*time.Hour:
		n, unit = int(d.Hours()/24), "day"
	case d >= time.Hour:
		n, unit = int(d.Hours()), "hour"
	}
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
