package analyst

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spektr-org/pulse/engine"
)

func TestIsFollowUpContinuationWord(t *testing.T) {
	d := NewFollowUpDetector(nil)
	turns := []engine.ConversationTurn{
		{Role: engine.RoleUser, Content: "show me brand performance"},
		{Role: engine.RoleAssistant, Content: "Brand X is the strongest Brand."},
	}
	assert.True(t, d.IsFollowUp("what about last year", turns))
	assert.True(t, d.IsFollowUp("Tell me MORE", nil))
}

func TestIsFollowUpEntityOverlap(t *testing.T) {
	d := NewFollowUpDetector(nil)
	turns := []engine.ConversationTurn{
		{Role: engine.RoleUser, Content: "lta by channel"},
		{Role: engine.RoleAssistant, Content: "Retail carries the highest Group Cost."},
	}
	assert.True(t, d.IsFollowUp("is lta rising", turns))
	assert.True(t, d.IsFollowUp("how is group cost split", turns))
	assert.False(t, d.IsFollowUp("show units by brand", turns))
}

func TestIsFollowUpNoHistory(t *testing.T) {
	d := NewFollowUpDetector(nil)
	assert.False(t, d.IsFollowUp("show units by brand", nil))
}

func TestEntities(t *testing.T) {
	d := NewFollowUpDetector(nil)
	turns := []engine.ConversationTurn{
		{Role: engine.RoleUser, Content: "how did we do"},
		{Role: engine.RoleUser, Content: "profit please"},
		{Role: engine.RoleAssistant, Content: "gSales by Customer grew."},
		{Role: engine.RoleAssistant, Content: ""},
	}
	got := d.Entities(turns)

	assert.Equal(t, []string{"GrossProfit", "fGP", "Customer", "gSales"}, got)
}
