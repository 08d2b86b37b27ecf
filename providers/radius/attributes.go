package radius

import (
	"net/netip"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"radius-sync/models"
)

type Vendor string

const (
	Mikrotik Vendor = "mikrotik"
	Ubiquiti Vendor = "ubiquiti"
	Juniper  Vendor = "juniper"
	Cisco    Vendor = "cisco"
	Generic  Vendor = "generic"
)

type Attribute struct {
	Name  string
	Op    string
	Value string
}

// Limits are plan speeds in Mbps.
type Limits struct {
	DownloadMbps float64
	UploadMbps   float64
}

// ReplyBuilder turns a subscription's limits into the radreply attribute set.
// One builder is used for a whole run so every user gets the same format.
type ReplyBuilder struct {
	vendor     Vendor
	pppFraming bool
}

func NewReplyBuilder(vendor string, pppFraming bool) (*ReplyBuilder, error) {
	v := Vendor(strings.ToLower(strings.TrimSpace(vendor)))
	if v == "" {
		v = Mikrotik
	}
	switch v {
	case Mikrotik, Ubiquiti, Juniper, Cisco, Generic:
	default:
		return nil, errors.Errorf("unsupported RADIUS vendor %q", vendor)
	}
	return &ReplyBuilder{vendor: v, pppFraming: pppFraming}, nil
}

func (b *ReplyBuilder) Vendor() Vendor {
	return b.vendor
}

func (b *ReplyBuilder) RateLimit(l Limits) []Attribute {
	switch b.vendor {
	case Ubiquiti:
		return []Attribute{
			{Name: "WISPr-Bandwidth-Max-Up", Op: models.OpSet, Value: bitsPerSecond(l.UploadMbps)},
			{Name: "WISPr-Bandwidth-Max-Down", Op: models.OpSet, Value: bitsPerSecond(l.DownloadMbps)},
		}
	case Juniper:
		return []Attribute{{Name: "ERX-Qos-Profile-Name", Op: models.OpSet,
			Value: "profile-" + Mbps(l.DownloadMbps) + "-" + Mbps(l.UploadMbps)}}
	case Cisco:
		return []Attribute{{Name: "Cisco-AVPair", Op: models.OpSet,
			Value: "subscriber:sub-qos-policy-in=rate-limit-" + Mbps(l.DownloadMbps)}}
	case Generic:
		return []Attribute{{Name: "Filter-Id", Op: models.OpSet,
			Value: "speed-" + Mbps(l.DownloadMbps) + "-" + Mbps(l.UploadMbps)}}
	default:
		return []Attribute{{Name: models.AttrMikrotikRateLimit, Op: models.OpSet, Value: MikrotikRateLimit(l)}}
	}
}

// Build returns the complete reply set. The framed IP is skipped when ip is
// empty or unusable; ipAccepted reports whether ip produced an attribute.
func (b *ReplyBuilder) Build(l Limits, ip *string) (attrs []Attribute, ipAccepted bool) {
	attrs = b.RateLimit(l)
	if ip != nil && strings.TrimSpace(*ip) != "" {
		if addr, ok := FramedIP(*ip); ok {
			attrs = append(attrs, Attribute{Name: models.AttrFramedIPAddress, Op: models.OpSet, Value: addr})
			ipAccepted = true
		}
	}
	if b.pppFraming {
		attrs = append(attrs,
			Attribute{Name: models.AttrFramedProtocol, Op: models.OpSet, Value: "PPP"},
			Attribute{Name: models.AttrServiceType, Op: models.OpSet, Value: "Framed-User"},
		)
	}
	return attrs, ipAccepted
}

// MikrotikRateLimit formats rx/tx from the router's side, i.e. upload first.
func MikrotikRateLimit(l Limits) string {
	return Mbps(l.UploadMbps) + "/" + Mbps(l.DownloadMbps)
}

func Mbps(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "M"
}

func bitsPerSecond(mbps float64) string {
	return strconv.FormatInt(int64(mbps*1000000), 10)
}

// FramedIP accepts a bare address or the host/len text form postgres uses for
// inet columns. The unspecified address is rejected.
func FramedIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	var addr netip.Addr
	if strings.Contains(raw, "/") {
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return "", false
		}
		addr = prefix.Addr()
	} else {
		a, err := netip.ParseAddr(raw)
		if err != nil {
			return "", false
		}
		addr = a
	}
	if !addr.Is4() || addr.IsUnspecified() {
		return "", false
	}
	return addr.String(), true
}
