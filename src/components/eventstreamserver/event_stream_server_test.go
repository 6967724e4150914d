package eventstreamserver

import (
	"bufio"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shivlim/casper-node/src/common"
	"github.com/shivlim/casper-node/src/components/testutil"
	"github.com/shivlim/casper-node/src/crypto/keys"
	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*EventStreamServer, <-chan Event) {
	conf := DefaultConfig()
	conf.Address = "127.0.0.1:0"
	s, effs, err := New(conf, "1.0.0", common.NewTestEntry(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, testutil.Go(effs)
}

type stream struct {
	t      *testing.T
	reader *bufio.Reader
}

func connect(t *testing.T, s *EventStreamServer, lastID string) *stream {
	req, err := http.NewRequest(http.MethodGet, "http://"+s.Address()+"/events", nil)
	require.NoError(t, err)
	if lastID != "" {
		req.Header.Set("Last-Event-ID", lastID)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))
	return &stream{t: t, reader: bufio.NewReader(res.Body)}
}

// next reads one event and returns its lines.
func (s *stream) next() []string {
	var lines []string
	for {
		line, err := s.reader.ReadString('\n')
		require.NoError(s.t, err)
		line = strings.TrimSuffix(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func block(t *testing.T, height uint64) *types.Block {
	b, err := types.NewBlock(types.BlockHash{}, types.Digest{}, &types.FinalizedBlock{Height: height}, "1.0.0")
	require.NoError(t, err)
	return b
}

func TestStreamsEvents(t *testing.T) {
	s, _ := newServer(t)
	client := connect(t, s, "")
	assert.Equal(t, []string{`data: {"ApiVersion":"1.0.0"}`}, client.next())
	require.Eventually(t, func() bool { return s.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	b := block(t, 4)
	assert.Empty(t, s.HandleEvent(effect.Builder{}, nil, BlockAdded{Block: b}))

	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	d, err := types.NewTransfer("casper-test", key, types.Digest{}, types.NewMotes(1), types.Now(), time.Minute)
	require.NoError(t, err)
	s.HandleEvent(effect.Builder{}, nil, DeployAccepted{Deploy: d})

	ev := client.next()
	require.Len(t, ev, 2)
	assert.Equal(t, "id: 0", ev[0])
	assert.Contains(t, ev[1], `"BlockAdded"`)
	assert.Contains(t, ev[1], b.Hash.Hex())

	ev = client.next()
	require.Len(t, ev, 2)
	assert.Equal(t, "id: 1", ev[0])
	assert.Contains(t, ev[1], `"DeployAccepted"`)
	assert.Contains(t, ev[1], d.Hash.Hex())
}

func TestResumesFromLastEventID(t *testing.T) {
	s, _ := newServer(t)
	for h := uint64(0); h < 3; h++ {
		s.HandleEvent(effect.Builder{}, nil, BlockAdded{Block: block(t, h)})
	}

	client := connect(t, s, "0")
	client.next()
	assert.Equal(t, "id: 1", client.next()[0])
	assert.Equal(t, "id: 2", client.next()[0])
}

func TestRejectsBadLastEventID(t *testing.T) {
	s, _ := newServer(t)
	res, err := http.Get("http://" + s.Address() + "/events?start_from=abc")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCloseDisconnectsClients(t *testing.T) {
	s, stopped := newServer(t)
	client := connect(t, s, "")
	client.next()

	require.NoError(t, s.Close())
	_, err := client.reader.ReadString('\n')
	assert.Error(t, err)
	assert.NoError(t, (<-stopped).(Stopped).Err)
}
