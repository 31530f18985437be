package main

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/mmcdole/rebootv/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintNotifier_ConcurrentShow(t *testing.T) {
	var buf bytes.Buffer
	notes := &printNotifier{w: &buf}

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			notes.Show(fmt.Sprintf("info %d", i), domain.LevelInfo)
		}()
		go func() {
			defer wg.Done()
			notes.Show("Failed to refresh playlist", domain.LevelError)
			_ = notes.Err()
		}()
	}
	wg.Wait()

	require.Error(t, notes.Err())
	assert.Equal(t, "Failed to refresh playlist", notes.Err().Error())
	assert.Equal(t, 10, bytes.Count(buf.Bytes(), []byte("\n")))
}
