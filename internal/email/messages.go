package email

import (
	"context"
	"fmt"
	"html"
	"time"
)

// Mailer renders the registry's messages and hands them to a Sender
type Mailer struct {
	sender     Sender
	appBaseURL string
}

// NewMailer creates a mailer whose links point at appBaseURL
func NewMailer(sender Sender, appBaseURL string) *Mailer {
	return &Mailer{sender: sender, appBaseURL: appBaseURL}
}

// InviteLink returns the acceptance URL for an invitation token
func (m *Mailer) InviteLink(token string) string {
	return fmt.Sprintf("%s/invite/%s", m.appBaseURL, token)
}

const layout = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2e7d32; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #2e7d32; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>%s</h1>
		</div>
		<div class="content">
%s
		</div>
		<div class="footer">
			<p>This is an automated email from Mmanyin Orie. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`

const textFooter = `
---
This is an automated email from Mmanyin Orie. Please do not reply.
`

// SendInvitation emails an invitation with its acceptance link
func (m *Mailer) SendInvitation(ctx context.Context, toEmail, communityName, inviterName, token string, expiresAt time.Time) error {
	link := m.InviteLink(token)
	expires := expiresAt.Format("2 January 2006")
	if inviterName == "" {
		inviterName = "A community administrator"
	}

	subject := fmt.Sprintf("You're invited to join %s", communityName)
	content := fmt.Sprintf(`
			<p>Hello,</p>
			<p>%s has invited you to join <strong>%s</strong> on Mmanyin Orie.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Accept Invitation</a>
			</p>
			<p>Or copy and paste this link into your browser:</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
			<p><strong>This invitation expires on %s.</strong></p>`,
		html.EscapeString(inviterName), html.EscapeString(communityName), link, link, expires)

	text := fmt.Sprintf(`Hello,

%s has invited you to join %s on Mmanyin Orie.

Accept the invitation here:
%s

This invitation expires on %s.
%s`, inviterName, communityName, link, expires, textFooter)

	return m.sender.Send(ctx, Message{
		To:      toEmail,
		Subject: subject,
		HTML:    fmt.Sprintf(layout, "You're Invited", content),
		Text:    text,
	})
}

// SendNewMemberNotification tells a newly added member they are on the roster
func (m *Mailer) SendNewMemberNotification(ctx context.Context, toEmail, memberName, communityName, tier string) error {
	subject := fmt.Sprintf("Welcome to %s", communityName)
	content := fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>You have been added to the <strong>%s</strong> register.</p>
			<p>Your contribution group is <strong>%s</strong>.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Open Mmanyin Orie</a>
			</p>`,
		html.EscapeString(memberName), html.EscapeString(communityName), html.EscapeString(tier), m.appBaseURL)

	text := fmt.Sprintf(`Hi %s,

You have been added to the %s register.
Your contribution group is %s.

%s
%s`, memberName, communityName, tier, m.appBaseURL, textFooter)

	return m.sender.Send(ctx, Message{
		To:      toEmail,
		Subject: subject,
		HTML:    fmt.Sprintf(layout, "Welcome", content),
		Text:    text,
	})
}
