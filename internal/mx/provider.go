package mx

import (
	"strings"

	"github.com/scoutlabs/mailscout/internal/domain"
)

var providerHints = []struct {
	token string
	name  string
}{
	{"google", "Google Workspace"},
	{"gmail", "Google Workspace"},
	{"outlook", "Microsoft 365"},
	{"microsoft", "Microsoft 365"},
	{"office365", "Microsoft 365"},
	{"protonmail", "ProtonMail"},
	{"zoho", "Zoho Mail"},
	{"mailgun", "Mailgun"},
	{"sendgrid", "SendGrid"},
}

// Provider guesses the mail provider from the preferred MX host. Returns
// "Unknown" when nothing matches or the domain has no MX records.
func Provider(v *domain.DomainVerification) string {
	if v == nil || len(v.Records) == 0 {
		return "Unknown"
	}
	host := strings.ToLower(v.Records[0].Host)
	for _, h := range providerHints {
		if strings.Contains(host, h.token) {
			return h.name
		}
	}
	return "Unknown"
}
