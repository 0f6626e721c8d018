//
// Copyright (C) 2019 Oracle and/or its affiliates. All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at https://oss.oracle.com/licenses/upl
//
// Please see LICENSE.txt file included in the top-level directory of the
// appropriate download for a copy of the license and additional information.
//

package sdkutil

import (
	"fmt"
	"runtime"
)

const (
	major = 0
	minor = 1
	patch = 0

	// serviceVersion is the protocol version segment of the request URIs
	// below; it is fixed by the server, not by this driver's own version.
	serviceVersion = "V0"
	// DataServiceURI is the path data requests are POSTed to.
	DataServiceURI = "/V0/nosql/data"
	// SecurityServiceURI is the path security/auth requests are POSTed to;
	// used only against an on-premise server.
	SecurityServiceURI = "/V0/nosql/security"
)

var driverVersion, userAgent string

func init() {
	driverVersion = fmt.Sprintf("%d.%d.%d", major, minor, patch)
	// Example: kvdriver-go/0.1.0 (go1.21; linux/amd64)
	userAgent = fmt.Sprintf("kvdriver-go/%s (%s; %s/%s)",
		driverVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// SDKVersion returns this driver's own version string.
func SDKVersion() string {
	return driverVersion
}

// UserAgent returns a descriptive string that can be set in the "User-Agent"
// header of HTTP requests.
func UserAgent() string {
	return userAgent
}
