package netutil

import (
	"net"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// ValidateRpcUrl validates a JSON RPC endpoint URL. Only http and https
// endpoints with a valid host are accepted. The host is not resolved.
func ValidateRpcUrl(value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}

	if len(parsed.Host) == 0 {
		return errors.New("host component missing")
	}

	host := parsed.Hostname()
	if ip := net.ParseIP(host); ip == nil {
		if err := ValidateDomainName(host); err != nil {
			return errors.Wrap(err, "host is not a valid domain name")
		}
	}

	if port := parsed.Port(); len(port) > 0 {
		value, err := strconv.ParseUint(port, 10, 16)
		if err != nil || value == 0 {
			return errors.Errorf("invalid port: %s", port)
		}
	}

	return nil
}
