package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// hashEnvelope binds the payload to the exact template it was rendered
// against, so the same data issued against a newer template version gets a
// fresh identity.
type hashEnvelope struct {
	TemplateID      string  `json:"template_id"`
	TemplateVersion string  `json:"template_version"`
	Payload         Payload `json:"payload"`
}

// ContentHash derives the idempotency key for an issuance: a SHA-256 hex
// digest over the RFC 8785 canonical JSON form of (template id, template
// version, payload). The caller must pass the normalized payload —
// normalization is what makes key order, separator style, and insignificant
// whitespace irrelevant to the digest. The digest is opaque; nothing ever
// decodes it.
func ContentHash(templateID, templateVersion string, p Payload) (string, error) {
	raw, err := json.Marshal(hashEnvelope{
		TemplateID:      templateID,
		TemplateVersion: templateVersion,
		Payload:         p,
	})
	if err != nil {
		return "", fmt.Errorf("contract: marshal for hashing: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("contract: canonicalize for hashing: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
