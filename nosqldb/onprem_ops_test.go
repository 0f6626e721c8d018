//
// Copyright (c) 2019, 2023 Oracle and/or its affiliates. All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at
//  https://oss.oracle.com/licenses/upl/
//

// +build onprem

package nosqldb_test

import (
	"fmt"
	"testing"

	"github.com/nosqlkv/kvdriver/internal/test"
	"github.com/nosqlkv/kvdriver/nosqldb"
	"github.com/nosqlkv/kvdriver/nosqldb/types"
	"github.com/stretchr/testify/suite"
)

// OnPremTestSuite tests operations that are supported for on-premise NoSQL database server.
type OnPremTestSuite struct {
	*test.NoSQLTestSuite
}

// TestChildTable tests put, get, delete and query operations on a child table,
// both with and without an enclosing namespace.
func (suite *OnPremTestSuite) TestChildTable() {
	suite.doChildTableTest("")
	// Test child tables in the specified namespace.
	suite.doChildTableTest("Ns001")
}

func (suite *OnPremTestSuite) doChildTableTest(ns string) {
	var stmt string
	var err error

	if len(ns) > 0 {
		stmt = "CREATE NAMESPACE IF NOT EXISTS " + ns
		suite.ExecuteDDL(stmt)
	}

	parentTable := suite.GetNsTableName(ns, "Parent")
	stmt = "CREATE TABLE IF NOT EXISTS " + parentTable +
		" (id INTEGER, pin INTEGER, name STRING, PRIMARY KEY(SHARD(pin), id))"
	suite.CreateTable(stmt, nil)

	childTable := parentTable + ".Child"
	stmt = "CREATE TABLE IF NOT EXISTS " + childTable +
		" (childId INTEGER, childName STRING, PRIMARY KEY(childId))"
	suite.CreateTable(stmt, nil)

	// Put a row.
	value := &types.MapValue{}
	value.Put("id", 1).Put("pin", 123456).Put("name", "test1")
	value.Put("childId", 1).Put("childName", "cname")

	putReq := &nosqldb.PutRequest{
		TableName: childTable,
		Value:     value,
	}
	putRes, err := suite.Client.Put(putReq)
	if suite.NoErrorf(err, "Put(table=%s) failed: %v", childTable, err) {
		suite.NotNilf(putRes.Version, "Put should have returned a non-nil Version")
	}

	// Get the row.
	key := &types.MapValue{}
	key.Put("id", 1).Put("pin", 123456).Put("childId", 1)

	getReq := &nosqldb.GetRequest{
		TableName: childTable,
		Key:       key,
	}
	getRes, err := suite.Client.Get(getReq)
	if suite.NoErrorf(err, "Get(table=%s, key=%v) failed: %v", childTable, key, err) {
		suite.Truef(getRes.RowExists(), "Get(table=%s, key=%v) failed: %v", childTable, key, err)
	}

	// Put with JSON.
	jsonStr := `{"id": 2, "pin": 13579, "name": "test2", "childId": 2, "childName": "cname2"}`
	value, err = types.NewMapValueFromJSON(jsonStr)
	suite.NoErrorf(err, "NewMapValueFromJSON(jsonStr=%q): %v", jsonStr, err)
	putReq = &nosqldb.PutRequest{
		TableName: childTable,
		Value:     value,
	}
	putRes, err = suite.Client.Put(putReq)
	if suite.NoErrorf(err, "Put(table=%s) failed: %v", childTable, err) {
		suite.NotNilf(putRes.Version, "Put should have returned a non-nil Version")
	}

	jsonStr = `{"id": 2, "pin": 13579, "childId": 2}`
	key, err = types.NewMapValueFromJSON(jsonStr)
	if suite.NoErrorf(err, "NewMapValueFromJSON(jsonStr=%q): %v", jsonStr, err) {
		getReq = &nosqldb.GetRequest{
			TableName: childTable,
			Key:       key,
		}
		getRes, err = suite.Client.Get(getReq)
		if suite.NoErrorf(err, "Get(table=%s, key=%v) failed: %v", childTable, key, err) {
			suite.Truef(getRes.RowExists(), "Get(table=%s, key=%v) failed: %v", childTable, key, err)
		}
	}

	// Query
	stmt = fmt.Sprintf("SELECT * FROM %s WHERE childName='%s'", childTable, "cname2")
	qReq := &nosqldb.QueryRequest{
		Statement: stmt,
	}

	results, err := suite.ExecuteQueryRequest(qReq)
	if suite.NoErrorf(err, "Query(stmt=%s) failed: %v", stmt, err) {
		if suite.Equalf(1, len(results), "unexpected number of results returned") {
			id, ok := results[0].GetInt("id")
			if suite.Truef(ok, "cannot find int value of \"id\" column") {
				suite.Equalf(2, id, "unexpected value of \"id\" column")
			}
		}
	}

	// Create an index on "childName" field.
	stmt = fmt.Sprintf("CREATE INDEX %s ON %s(%s)", "idx1", childTable, "childName")
	suite.ExecuteTableDDL(stmt)

	// Query by index field.
	stmt = fmt.Sprintf("SELECT * FROM %s WHERE childName='%s'", childTable, "cname2")
	qReq = &nosqldb.QueryRequest{
		Statement: stmt,
	}
	results, err = suite.ExecuteQueryRequest(qReq)
	if suite.NoErrorf(err, "Query(stmt=%s) failed: %v", stmt, err) {
		if suite.Equalf(1, len(results), "unexpected number of results returned") {
			id, ok := results[0].GetInt("id")
			if suite.Truef(ok, "cannot find int value of \"id\" column") {
				suite.Equalf(2, id, "unexpected value of \"id\" column")
			}
		}
	}

	// Delete a row.
	key = &types.MapValue{}
	key.Put("id", 1).Put("pin", 123456).Put("childId", 1)

	delReq := &nosqldb.DeleteRequest{
		TableName: childTable,
		Key:       key,
	}
	delRes, err := suite.Client.Delete(delReq)
	if suite.NoErrorf(err, "Delete(table=%s, key=%v) failed: %v", childTable, key, err) {
		suite.Truef(delRes.Success, "Delete(table=%s, key=%v) should have succeeded", childTable, key)
	}

	// Drop child table and then parent table.
	stmt = "DROP TABLE IF EXISTS " + childTable
	suite.ExecuteTableDDL(stmt)
	stmt = "DROP TABLE IF EXISTS " + parentTable
	suite.ExecuteTableDDL(stmt)
}

func TestOnPremOperations(t *testing.T) {
	test := &OnPremTestSuite{
		NoSQLTestSuite: test.NewNoSQLTestSuite(),
	}
	suite.Run(t, test)
}
