package mail

import (
	"fmt"
	"html"
)

// VerificationEmail renders the account activation message.
func VerificationEmail(verificationURL string) (subject, body string) {
	subject = "Molda Invest - Confirme seu email"
	body = fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933;">
  <h2>Bem-vindo ao Molda Invest!</h2>
  <p>Para ativar sua conta, confirme seu email clicando no botão abaixo:</p>
  <p>
    <a href="%s" style="display:inline-block;padding:12px 24px;background:#2563eb;color:#ffffff;border-radius:6px;text-decoration:none;">Confirmar email</a>
  </p>
  <p>O link expira em 24 horas. Se você não criou esta conta, ignore esta mensagem.</p>
</body>
</html>`, html.EscapeString(verificationURL))
	return subject, body
}

// OTPEmail renders the login code message.
func OTPEmail(code string) (subject, body string) {
	subject = "Molda Invest - Seu código de acesso"
	body = fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933;">
  <h2>Código de acesso</h2>
  <p>Use o código abaixo para entrar na sua conta:</p>
  <p style="font-size:32px;font-weight:bold;letter-spacing:8px;">%s</p>
  <p>O código expira em 10 minutos e só pode ser usado uma vez.</p>
</body>
</html>`, html.EscapeString(code))
	return subject, body
}
