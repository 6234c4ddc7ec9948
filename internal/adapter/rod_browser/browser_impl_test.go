package rod_browser

import (
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ysmood/gson"
)

func TestToResponse(t *testing.T) {
	resp := toResponse(&proto.NetworkResponse{
		URL:             "https://acme.test/",
		Status:          200,
		RemoteIPAddress: "93.184.216.34",
		Headers:         proto.NetworkHeaders{"server": gson.New("nginx")},
		SecurityDetails: &proto.NetworkSecurityDetails{
			Protocol:    "TLS 1.3",
			SubjectName: "acme.test",
			Issuer:      "R3",
			ValidFrom:   proto.TimeSinceEpoch(1700000000),
			ValidTo:     proto.TimeSinceEpoch(1800000000),
		},
	})

	assert.Equal(t, "https://acme.test/", resp.URL)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "93.184.216.34", resp.RemoteAddress)
	assert.Equal(t, map[string]string{"server": "nginx"}, resp.Headers)
	require.NotNil(t, resp.TLS)
	assert.Equal(t, "acme.test", resp.TLS.SubjectName)
	assert.True(t, resp.TLS.ValidFrom.Equal(time.Unix(1700000000, 0)))
	assert.True(t, resp.TLS.ValidTo.Equal(time.Unix(1800000000, 0)))
}

func TestRemotePort(t *testing.T) {
	port := 8080

	assert.Equal(t, "443", remotePort(443))
	assert.Equal(t, "8080", remotePort(&port))
	assert.Equal(t, "", remotePort((*int)(nil)))
	assert.Equal(t, "", remotePort(0))
}
