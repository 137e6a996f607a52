package crawl

import (
	"net/url"
	"strings"

	"github.com/mirarav/convocatorias/core"
)

// UnknownOrganism is returned by OrganismFor for unlisted domains.
const UnknownOrganism = "OTRO"

// organisms maps domain fragments to the body that publishes calls there.
// Checked in order; the first fragment contained in the host wins.
var organisms = []struct {
	domain, name string
}{
	{"ader.es", "ADER"},
	{"aei.gob.es", "AEI"},
	{"cdti.es", "CDTI"},
	{"comunidad.madrid", "Comunidad de Madrid"},
	{"xunta.gal", "GAIN"},
	{"aragon.es", "Gobierno de Aragón"},
	{"cantabria.es", "Gobierno de Cantabria"},
	{"navarra.es", "Gobierno de Navarra"},
	{"ivace.es", "IVACE"},
	{"digital.gob.es", "Gobierno de España"},
	{"red.gob.es", "Red"},
	{"sodercan.es", "SODERCAN"},
	{"spri.eus", "SPRI"},
	{"andaluciatrade.es", "TRADE"},
}

// ValidateURL reports whether raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) error {
	return core.ValidateURL(raw)
}

// OrganismFor names the publishing body for a call URL.
func OrganismFor(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return UnknownOrganism
	}
	host := strings.ToLower(u.Hostname())
	for _, o := range organisms {
		if strings.Contains(host, o.domain) {
			return o.name
		}
	}
	return UnknownOrganism
}
