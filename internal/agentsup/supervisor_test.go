package agentsup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParamsTokens_IncludesRequiredFlags(t *testing.T) {
	p := Params{
		LogLevel:           "info",
		MaxSize:            1024,
		BitRate:            8000000,
		MaxFPS:             60,
		IntraRefreshPeriod: 10,
		AgentVersion:       "3.1",
	}
	tokens := p.tokens()

	require.Contains(t, tokens, "log_level=info")
	require.Contains(t, tokens, "max_size=1024")
	require.Contains(t, tokens, "video_bit_rate=8000000")
	require.Contains(t, tokens, "max_fps=60")
	require.Contains(t, tokens, "video_codec_options=i-frame-interval=10")
	require.Contains(t, tokens, "tunnel_forward=true")
	require.Contains(t, tokens, "control=true")
	require.Contains(t, tokens, "3.1")
}
