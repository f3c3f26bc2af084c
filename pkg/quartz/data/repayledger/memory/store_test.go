package memory

import (
	"testing"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/repayledger/tests"
)

func TestLedgerMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunTests(t, testStore, teardown)
}
