//
// Copyright (C) 2019 Oracle and/or its affiliates. All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl
//
// Please see LICENSE.txt file included in the top-level directory of the
// appropriate download for a copy of the license and additional information.
//

package nosqldb

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nosqlkv/kvdriver/nosqldb/httputil"
	"github.com/nosqlkv/kvdriver/nosqldb/logger"
	"github.com/nosqlkv/kvdriver/nosqldb/types"
)

const (
	// maxContentLength is 1MB. It is not referenced by the request path:
	// request content size is checked against proto.RequestSizeLimit by
	// checkRequestSizeLimit, which reports RequestSizeLimitExceeded.
	maxContentLength = 1024 * 1024

	// The default timeout value for requests.
	// This applies to any requests other than TableRequest.
	defaultRequestTimeout = 5 * time.Second

	// The default timeout value for TableRequest.
	defaultTableRequestTimeout = 10 * time.Second

	// The default timeout value for retrieving security information such as
	// access tokens from authorization service.
	// This specifies a period of time waiting for security information to be available.
	defaultSecurityInfoTimeout = 10 * time.Second

	// The default Consistency value.
	defaultConsistency = types.Eventual
)

// Config represents a group of configuration parameters for a Client.
//
// When creating a Client, the Config instance is copied so modifications on the
// instance have no effect on the existing Client which is immutable.
//
// Most of the configuration parameters are optional and have default values if
// not specified. An Endpoint is required, except in cloud mode where a Region
// may be given instead.
type Config struct {
	// Endpoint specifies the NoSQL service endpoint that client connects to.
	// It is required unless Region is set in cloud mode.
	// It must include the target address, and may include protocol and port.
	// The syntax is:
	//
	//   [http[s]://]host[:port]
	//
	// For example, these are valid endpoints:
	//
	//   ndcs.uscom-east-1.oraclecloud.com
	//   https://ndcs.eucom-central-1.oraclecloud.com:443
	//   localhost:8080
	//
	// If port is omitted, the endpoint uses 443 for https or when protocol is
	// also omitted, and 8080 for http.
	// If protocol is omitted, the endpoint uses https if the port is 443, and
	// http in all other cases.
	Endpoint string

	// Region specifies the OCI region of the NoSQL cloud service to connect
	// to, as an alternative to Endpoint. Only valid in cloud mode; Endpoint
	// and Region must not both be set. If neither is set, NewClient returns
	// an error.
	Region Region

	// Mode specifies the configuration mode for client, which is either "cloud"
	// or "onprem" representing the client is configured for connecting to a
	// NoSQL cloud service or on-premise NoSQL server respectively.
	// If not set, the "cloud" mode is used by default.
	Mode string

	// Username specifies the user that used to authenticate with the server.
	// It applies to on-premise NoSQL servers configured with security.
	// NewClient does not read it and does not create a provider from it.
	Username string

	// Password specifies the password for user that used to authenticate with the server.
	// It applies to on-premise NoSQL servers configured with security.
	// NewClient does not read it and does not create a provider from it.
	Password []byte

	// Configurations for requests.
	RequestConfig

	// Configurations for HTTP client.
	httputil.HTTPConfig

	// Configurations for logging.
	LoggingConfig

	// Authorization provider, such as cloudsim.AccessTokenProvider for the
	// cloud simulator or kvstore.AccessTokenProvider for secure on-premise
	// NoSQL servers.
	// If not specified, NewClient does not create one, and requests are sent
	// without an Authorization header.
	AuthorizationProvider

	// RetryHandler specifies a handler used to handle operation retries.
	RetryHandler

	// RateLimitingEnabled specifies whether the client should create and use
	// internal rate limiters for each table accessed, based on the table's
	// configured read/write throughput. This only applies in cloud mode, as
	// on-premise servers do not return table throughput limits.
	RateLimitingEnabled bool

	// RateLimiterPercentage specifies a percentage, in the range (0, 100], of
	// a table's configured throughput that the internal rate limiters should
	// allow the client to consume. If not set (0), 100% is used.
	RateLimiterPercentage float64

	// DefaultCompartment specifies a default compartment (cloud mode) or
	// namespace (on-premise mode) to use for requests that do not otherwise
	// specify one. The value is kept in the Config; the client does not
	// apply it to requests.
	DefaultCompartment string

	host     string
	port     string
	protocol string

	// httpClient is the HTTP client used to send requests. NewClient creates
	// it from HTTPConfig unless already set.
	httpClient *httputil.HTTPClient
}

// parseEndpoint tries to parse the specified Endpoint, returns an error if
// Endpoint does not conform to the syntax:
//
//   [http[s]://]host[:port]
//
// The following rules are applied to the Endpoint:
//
// 1. If protocol and port are both omitted, the Endpoint uses https with port 443.
//
// 2. If port is omitted, the Endpoint uses 443 for https, or 8080 for http.
//
// 3. If protocol is omitted, the Endpoint uses https if the port is 443, and
// http in all other cases.
func (c *Config) parseEndpoint() (err error) {
	if c.Endpoint == "" && c.Region != "" {
		c.Endpoint, err = c.Region.Endpoint()
		if err != nil {
			return err
		}
	}

	c.protocol, c.host, c.port, err = parseEndpoint(c.Endpoint)
	if err != nil {
		return
	}

	c.Endpoint = c.protocol + "://" + c.host + ":" + c.port
	return nil
}

// IsCloud reports whether the configuration targets the NoSQL cloud service,
// as distinct from the cloud simulator or an on-premise server.
func (c *Config) IsCloud() bool {
	return c.Mode == "" || strings.EqualFold(c.Mode, "cloud")
}

// IsCloudSim reports whether the configuration targets the cloud simulator.
func (c *Config) IsCloudSim() bool {
	return strings.EqualFold(c.Mode, "cloudsim")
}

// IsOnPrem reports whether the configuration targets an on-premise NoSQL server.
func (c *Config) IsOnPrem() bool {
	return strings.EqualFold(c.Mode, "onprem")
}

// setDefaults validates the configuration and fills in derived fields
// (protocol, host, port) from Endpoint or Region. NewClient calls it on its
// own copy of the Config. It returns an error if neither Endpoint nor Region
// is set.
func (c *Config) setDefaults() error {
	if err := c.validate(); err != nil {
		return err
	}

	if c.Endpoint == "" && c.Region == "" {
		return errors.New("Endpoint or Region must be specified")
	}

	return c.parseEndpoint()
}

// validate checks that Mode, Endpoint and Region are a consistent
// combination: Endpoint and Region are mutually exclusive, Region only
// makes sense in cloud mode, and cloudsim/onprem mode requires an Endpoint.
func (c *Config) validate() error {
	switch {
	case c.IsCloud():
		if c.Endpoint != "" && c.Region != "" {
			return errors.New("cannot specify both Endpoint and Region for cloud service")
		}
		return nil

	case strings.EqualFold(c.Mode, "cloudsim") || strings.EqualFold(c.Mode, "onprem"):
		if c.Region != "" {
			return fmt.Errorf("Region is not supported for configuration mode %q", c.Mode)
		}
		if c.Endpoint == "" {
			return errors.New("Endpoint must be specified")
		}
		return nil

	default:
		return fmt.Errorf("unsupported configuration mode %q", c.Mode)
	}
}

func parseEndpoint(endpoint string) (protocol, host, port string, err error) {
	if endpoint == "" {
		err = errors.New("Endpoint must be specified")
		return
	}

	if idx := strings.Index(endpoint, "://"); idx == -1 {
		host = endpoint
	} else {
		protocol = strings.ToLower(endpoint[:idx])
		if protocol != "https" && protocol != "http" {
			return "", "", "", fmt.Errorf("the specified protocol %q is not supported. "+
				"Must use \"https\" or \"http\"", protocol)
		}
		host = endpoint[idx+3:]
	}

	// Strip the ending slashes.
	if strings.HasSuffix(host, "/") {
		host = strings.TrimRightFunc(host, func(r rune) bool {
			return r == '/'
		})
	}

	bracket := strings.IndexByte(host, ']')
	colon := strings.LastIndexByte(host, ':')
	if colon > bracket {
		host, port, err = net.SplitHostPort(host)
		if err != nil {
			return "", "", "", err
		}
		if port != "" {
			portNum, err := strconv.Atoi(port)
			if err != nil || portNum < 0 {
				return "", "", "", fmt.Errorf("invalid port number %s", port)
			}
		}
	}

	if host == "" {
		return "", "", "", fmt.Errorf("invalid endpoint %q", endpoint)
	}

	switch {
	case protocol == "" && port == "":
		protocol = "https"
		port = "443"

	case protocol == "":
		if port == "443" {
			protocol = "https"
		} else {
			protocol = "http"
		}

	case port == "":
		if protocol == "https" {
			port = "443"
		} else {
			port = "8080"
		}
	}

	return
}

// RequestConfig represents a group of configuration parameters for requests.
type RequestConfig struct {
	// RequestTimeout specifies a timeout value for requests.
	// This applies to any requests other than TableRequest.
	// If set, it must be greater than or equal to 1 millisecond.
	RequestTimeout time.Duration

	// TableRequestTimeout specifies a timeout value for TableRequest.
	// If set, it must be greater than or equal to 1 millisecond.
	TableRequestTimeout time.Duration

	// SecurityInfoTimeout specifies a timeout value for retrieving security
	// information such as access tokens from authorization service.
	// This specifies a period of time waiting for security information to be available.
	// If set, it must be greater than or equal to 1 millisecond.
	SecurityInfoTimeout time.Duration

	// Consistency specifies a Consistency value for read requests, which
	// include GetRequest and QueryRequest.
	// If set, it must be either types.Eventual or types.Absolute.
	Consistency types.Consistency
}

// DefaultRequestTimeout returns the default timeout value for requests.
// If there is no configured timeout or it is configured as 0, a default value
// (defaultRequestTimeout) of 5 seconds is used.
func (r *RequestConfig) DefaultRequestTimeout() time.Duration {
	if r == nil || r.RequestTimeout == 0 {
		return defaultRequestTimeout
	}
	return r.RequestTimeout
}

// DefaultTableRequestTimeout returns the default timeout value for table
// requests. If there is no configured timeout or it is configured as 0, a
// default value (defaultTableRequestTimeout) of 10 seconds is used.
func (r *RequestConfig) DefaultTableRequestTimeout() time.Duration {
	if r == nil || r.TableRequestTimeout == 0 {
		return defaultTableRequestTimeout
	}
	return r.TableRequestTimeout
}

// DefaultSecurityInfoTimeout returns the default timeout value while waiting
// for security information to be available. If there is no configured timeout
// or it is configured as 0, a default value (defaultSecurityInfoTimeout) of 10
// seconds is used.
func (r *RequestConfig) DefaultSecurityInfoTimeout() time.Duration {
	if r == nil || r.SecurityInfoTimeout == 0 {
		return defaultSecurityInfoTimeout
	}
	return r.SecurityInfoTimeout
}

// DefaultConsistency returns the default Consistency value. If there is a
// configured Consistency it is returned. Otherwise a default value
// (defaultConsistency) of types.Eventual is used.
func (r *RequestConfig) DefaultConsistency() types.Consistency {
	if r == nil || r.Consistency == 0 {
		return defaultConsistency
	}
	return r.Consistency
}

// LoggingConfig represents logging configurations.
type LoggingConfig struct {

	// Configurations for the logger.
	// If this is not set, use logger.DefaultLogger unless DisableLogging is set.
	*logger.Logger

	// DisableLogging represents whether logging is disabled.
	DisableLogging bool
}
