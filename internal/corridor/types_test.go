package corridor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelSetFingerprintIndependentOfInsertionOrder(t *testing.T) {
	a := LabelSet{"b": "2", "a": "1"}
	b := LabelSet{"a": "1", "b": "2"}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestLabelSetFingerprintDistinguishesValues(t *testing.T) {
	a := LabelSet{"a": "1"}
	b := LabelSet{"a": "2"}

	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
