package libs

import (
	"context"
	"os"
	"path/filepath"
	"storefront/models"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalReceiptStore_SaveReceipt(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalReceiptStore(dir)
	store.now = func() time.Time { return time.Unix(0, 42) }

	rel, err := store.SaveReceipt(context.Background(), "bank proof.png", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("receipts", "42_bank_proof.png"), rel)

	data, err := os.ReadFile(filepath.Join(dir, rel))
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestLocalReceiptStore_LongNames(t *testing.T) {
	store := NewLocalReceiptStore(t.TempDir())
	store.now = func() time.Time { return time.Unix(0, 7) }

	rel, err := store.SaveReceipt(context.Background(), strings.Repeat("a", 300)+".jpg", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("receipts", "7.jpg"), rel)
}

func TestOrderBody(t *testing.T) {
	body := orderBody(models.OrderNotification{
		ItemsSummary: "Mug x2 <b>",
		Total:        241,
		Address: models.StructuredAddress{
			StreetAddress: "12 Main St",
			City:          "Cape Town",
			Province:      "Western Cape",
			Country:       "South Africa",
		},
	})

	assert.Contains(t, body, "Mug x2 &lt;b&gt;")
	assert.Contains(t, body, "241.00")
	assert.Contains(t, body, "12 Main St, Cape Town, Western Cape, South Africa")
	assert.Equal(t, "New order #3", orderSubject(models.OrderNotification{OrderID: 3}))
	assert.Equal(t, "New order", orderSubject(models.OrderNotification{}))
}
