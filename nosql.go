//
// Copyright (c) 2019, 2023 Oracle and/or its affiliates. All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at
//  https://oss.oracle.com/licenses/upl/
//

/*
This is the official Go SDK for Oracle NoSQL.

More detailed information can be viewed at: https://github.com/nosqlkv/kvdriver/blob/master/README.md

Installation

Refer to https://github.com/nosqlkv/kvdriver/blob/master/README.md#installation for installation instructions.

Configuration

Refer to https://github.com/nosqlkv/kvdriver/blob/master/README.md#configuring-the-sdk for configuration instructions.

Full Example

See https://github.com/nosqlkv/kvdriver/blob/master/README.md#simple-example for an example program that uses the Go SDK to interact with an Oracle NoSQL database.

Working with Tables

See https://github.com/nosqlkv/kvdriver/blob/master/doc/tables.md for a tutorial that uses tables to store and retrieve data.

*/
package nosql
