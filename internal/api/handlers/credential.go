package handlers

import (
	"strings"

	"github.com/andresuchdata/r2bridge/internal/domain"
	"github.com/gin-gonic/gin"
)

// Per-request credential overrides. Unset headers fall back to the server default.
const (
	HeaderAccountID       = "X-R2-Account-Id"
	HeaderAPIToken        = "X-R2-Api-Token"
	HeaderAccessKeyID     = "X-R2-Access-Key-Id"
	HeaderSecretAccessKey = "X-R2-Secret-Access-Key"
)

func credentialFrom(c *gin.Context, base domain.Credential) domain.Credential {
	override := func(dst *string, header string) {
		if v := strings.TrimSpace(c.GetHeader(header)); v != "" {
			*dst = v
		}
	}
	cred := base
	override(&cred.AccountID, HeaderAccountID)
	override(&cred.APIToken, HeaderAPIToken)
	override(&cred.AccessKeyID, HeaderAccessKeyID)
	override(&cred.SecretAccessKey, HeaderSecretAccessKey)
	return cred
}
