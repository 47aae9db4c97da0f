package locator

import (
	"strings"

	"github.com/viant/docpatch/parser"
)

// Policy carries the externally supplied documentation policy. The
// classifier only exposes the decision point; the values come from
// configuration.
type Policy struct {
	// SignatureOnly restricts modified functions to those whose signature
	// changed; body-only edits are not documented.
	SignatureOnly bool
}

// HasDocFunc reports whether a function already carries well-formed
// documentation in the given source bytes.
type HasDocFunc func(fn *parser.Function, src []byte) bool

// SelectForDocumentation decides whether a function change is owed
// documentation. Added functions always qualify. Modified functions qualify
// unless the policy restricts to signature changes and only the body
// changed. Removed functions never qualify. Unchanged functions qualify
// only when hasDoc reports missing documentation (first-run backfill).
func SelectForDocumentation(change FunctionChange, oldSrc, newSrc []byte, policy Policy, hasDoc HasDocFunc) bool {
	switch change.Classification {
	case Added:
		return true
	case Modified:
		if !policy.SignatureOnly {
			return true
		}
		return signatureChanged(change, oldSrc, newSrc)
	case Unchanged:
		if hasDoc == nil || change.New == nil {
			return false
		}
		return !hasDoc(change.New, newSrc)
	default:
		return false
	}
}

func signatureChanged(change FunctionChange, oldSrc, newSrc []byte) bool {
	if change.Old == nil || change.New == nil {
		return true
	}
	oldSig := normalizeSignature(change.Old.SignatureText(oldSrc))
	newSig := normalizeSignature(change.New.SignatureText(newSrc))
	return oldSig != newSig
}

func normalizeSignature(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
