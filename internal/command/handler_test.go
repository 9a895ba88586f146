package command

import (
	"errors"
	"testing"
	"time"

	"boat-navigator/internal/common/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubmitter struct {
	cmds []Command
	err  error
}

func (s *recordingSubmitter) Submit(cmd Command) error {
	if s.err != nil {
		return s.err
	}
	s.cmds = append(s.cmds, cmd)
	return nil
}

type fixedIDs struct{}

func (fixedIDs) GenerateUniqueID() string { return "cmd_1" }

func newTestHandler(sub Submitter) *Handler {
	h := NewHandler(sub, nil, fixedIDs{})
	h.now = func() time.Time { return time.Unix(1700000000, 0) }
	return h
}

func TestHandle(t *testing.T) {
	t.Run("queues parsed command", func(t *testing.T) {
		sub := &recordingSubmitter{}
		h := newTestHandler(sub)

		res := h.Handle("SET_LOAD;40", "http")

		assert.Equal(t, constants.StatusSuccess, res.Status)
		assert.Equal(t, "SET_LOAD", res.Command)
		require.Len(t, sub.cmds, 1)
		assert.Equal(t, "cmd_1", sub.cmds[0].ID)
		assert.Equal(t, "http", sub.cmds[0].Source)
		assert.Equal(t, 40, sub.cmds[0].Load)
		assert.Equal(t, time.Unix(1700000000, 0), sub.cmds[0].ReceivedAt)
	})

	t.Run("unknown command is rejected", func(t *testing.T) {
		sub := &recordingSubmitter{}
		res := newTestHandler(sub).Handle("JUMP", "mqtt")

		assert.Equal(t, constants.StatusRejected, res.Status)
		assert.Empty(t, sub.cmds)
	})

	t.Run("bad argument fails", func(t *testing.T) {
		sub := &recordingSubmitter{}
		res := newTestHandler(sub).Handle("set_rudder;x", "mqtt")

		assert.Equal(t, constants.StatusFailure, res.Status)
		assert.Equal(t, "SET_RUDDER", res.Command)
		assert.Empty(t, sub.cmds)
	})

	t.Run("submit error fails", func(t *testing.T) {
		sub := &recordingSubmitter{err: errors.New("queue full")}
		res := newTestHandler(sub).Handle("ACTIVATE", "mqtt")

		assert.Equal(t, constants.StatusFailure, res.Status)
		assert.Contains(t, res.Message, "queue full")
	})
}
