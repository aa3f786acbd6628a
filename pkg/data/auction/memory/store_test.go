package memory

import (
	"testing"

	"github.com/code-payments/dutch-auction/pkg/data/auction/tests"
)

func TestAuctionMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunTests(t, testStore, teardown)
}
