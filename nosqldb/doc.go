//
// Copyright (c) 2019, 2020 Oracle and/or its affiliates.  All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at
//  https://oss.oracle.com/licenses/upl/
//

/*
Package nosqldb provides the public APIs for Go applications to use the Oracle NoSQL Database.

This package also provides configuration and common operational structs and interfaces,
such as request and result types used for NoSQL database operations.

More detailed information can be viewed at: https://github.com/nosqlkv/kvdriver/blob/master/README.md

*/
package nosqldb
