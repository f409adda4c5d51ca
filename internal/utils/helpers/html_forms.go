package helpers

import (
	"fmt"
	"html"
)

func BuildSimpleHTML(title, body string) string {
	return fmt.Sprintf(`
<html>
  <body style="font-family:Arial,sans-serif; background:#f9f9f9;">
    <table width="100%%" cellpadding="0" cellspacing="0" bgcolor="#f9f9f9">
      <tr>
        <td align="center" style="padding:32px 0;">
          <table width="500" bgcolor="#fff" cellpadding="24" cellspacing="0" style="border-radius:8px; box-shadow:0 1px 6px #eee;">
            <tr>
              <td>
                <h2 style="color:#4CAF50; margin-top:0;">%s</h2>
                <div style="font-size:16px; color:#222;">%s</div>
                <hr style="margin:32px 0 16px 0; border:0; border-top:1px solid #eee;">
                <div style="font-size:12px; color:#999;">Best regards,<br>The E-Learning Platform Team</div>
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>
`, title, body)
}

func BuildWelcomeHTML(name string) string {
	body := fmt.Sprintf(`
      <p>Hello %s,</p>
      <p>Thank you for registering with our E-Learning Platform. We're excited to have you on board!</p>
      <p>You can now log in and start exploring our courses.</p>
    `, html.EscapeString(name))
	return BuildSimpleHTML("Welcome to E-Learning Platform!", body)
}

func BuildPasswordResetHTML(name, link string, ttlMinutes int) string {
	body := fmt.Sprintf(`
      <p>Hello %s,</p>
      <p>You requested a password reset. Please click the link below to reset your password:</p>
      <p><a href="%s" style="display:inline-block;padding:10px 20px;background:#4CAF50;color:#fff;text-decoration:none;border-radius:5px;">Reset Password</a></p>
      <p>This link will expire in %d minutes.</p>
      <p>If you did not request this, please ignore this email and your password will remain unchanged.</p>
    `, html.EscapeString(name), link, ttlMinutes)
	return BuildSimpleHTML("Password Reset Request", body)
}

func BuildPasswordResetSuccessHTML(name string) string {
	body := fmt.Sprintf(`
      <p>Hello %s,</p>
      <p>Your password has been successfully reset.</p>
      <p>If you did not request this change, please contact our support team immediately.</p>
    `, html.EscapeString(name))
	return BuildSimpleHTML("Password Reset Successful", body)
}
