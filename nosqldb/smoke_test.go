//
// Copyright (c) 2019, 2023 Oracle and/or its affiliates. All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at
//  https://oss.oracle.com/licenses/upl/
//

// +build cloud onprem

package nosqldb_test

import (
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/nosqlkv/kvdriver/internal/test"
	"github.com/nosqlkv/kvdriver/nosqldb"
	"github.com/nosqlkv/kvdriver/nosqldb/nosqlerr"
	"github.com/nosqlkv/kvdriver/nosqldb/types"
	"github.com/stretchr/testify/suite"
)

// Smoke test.
type SmokeTestSuite struct {
	*test.NoSQLTestSuite
}

func (suite SmokeTestSuite) TestSmoke() {
	var err error
	var stmt string

	tableName := suite.GetTableName("SmokeTest")
	baseTime := time.Now()

	// Drop table.
	stmt = "DROP TABLE IF EXISTS " + tableName
	tableReq := &nosqldb.TableRequest{
		Statement: stmt,
	}
	tableRes, err := suite.Client.DoTableRequestAndWait(tableReq, 20*time.Second, 1*time.Second)
	suite.Require().NoErrorf(err, "\"%s\": %v", stmt, err)
	suite.Require().Equalf(types.Dropped, tableRes.State, "unexpected state for table \"%s\"", tableName)

	// Get table information.
	getTableReq := &nosqldb.GetTableRequest{
		TableName: tableName,
	}
	_, err = suite.Client.GetTable(getTableReq)
	suite.Require().Truef(nosqlerr.IsTableNotFound(err), "GetTable(table=%s) expect TableNotFound, got %v", tableName, err)

	// Create table.
	stmt = fmt.Sprintf("CREATE TABLE %s (id INTEGER, sid INTEGER, "+
		"cstr STRING, clong LONG, cdoub DOUBLE, cts TIMESTAMP(9), "+
		"PRIMARY KEY(SHARD(sid), id))", tableName)
	tableLimits := &nosqldb.TableLimits{
		ReadUnits:  6000,
		WriteUnits: 4000,
		StorageGB:  5,
	}

	tableReq = &nosqldb.TableRequest{
		Statement:   stmt,
		TableLimits: tableLimits,
	}
	tableRes, err = suite.Client.DoTableRequest(tableReq)
	suite.Require().NoErrorf(err, "\"%s\": %v", stmt, err)
	tableRes, err = tableRes.WaitForCompletion(suite.Client, 20*time.Second, 2*time.Second)
	suite.Require().NoErrorf(err, "WaitForCompletion(table=%s): %v", tableName, err)
	suite.Require().Equalf(types.Active, tableRes.State, "unexpected state for table \"%s\"", tableName)

	// Try to get a non-exist row.
	id := 1
	sid := 101

	key := &types.MapValue{}
	key.Put("id", id).Put("sid", sid)
	getReq := &nosqldb.GetRequest{
		TableName: tableName,
		Key:       key,
	}
	getRes, err := suite.Client.Get(getReq)
	suite.Require().NoErrorf(err, "Get(id=%d, sid=%d): %v", id, sid, err)
	suite.Require().Falsef(getRes.RowExists(), "Get(id=%d, sid=%d) should not return a non-exist row", id, sid)

	// Put a row.
	cstr := "row-Put-" + strconv.Itoa(id)
	value := &types.MapValue{}
	value.Put("id", id).Put("sid", sid)
	value.Put("clong", int64(id)).Put("cstr", cstr).Put("cdoub", 1.23)
	value.Put("cts", baseTime.Add(time.Duration(int64(id))))
	putReq := &nosqldb.PutRequest{
		TableName: tableName,
		Value:     value,
	}
	putRes, err := suite.Client.Put(putReq)
	suite.Require().NoErrorf(err, "Put(id=%d, sid=%d): %v", id, sid, err)
	suite.Require().NotNilf(putRes.Version, "Put(id=%d, sid=%d) returns nil Version", id, sid)

	// Get the row.
	key = &types.MapValue{}
	key.Put("id", id).Put("sid", sid)
	getReq = &nosqldb.GetRequest{
		TableName: tableName,
		Key:       key,
	}
	getRes, err = suite.Client.Get(getReq)
	suite.Require().NoErrorf(err, "Get(id=%d, sid=%d): %v", id, sid, err)
	suite.Require().Truef(getRes.RowExists(), "Get(id=%d, sid=%d) failed to get the row", id, sid)
	retStr, _ := getRes.Value.GetString("cstr")
	suite.Require().Equalf(cstr, retStr, "unexpected value for \"cstr\"")

	// PutIfPresent
	cstr = "row-PutIfPresent-" + strconv.Itoa(id)
	value.Put("cstr", cstr)
	putReq = &nosqldb.PutRequest{
		TableName: tableName,
		Value:     value,
		PutOption: types.PutIfPresent,
		TTL: &types.TimeToLive{
			Unit:  types.Hours,
			Value: int64(2),
		},
	}
	putRes, err = suite.Client.Put(putReq)
	suite.Require().NoErrorf(err, "PutIfPresent(id=%d, sid=%d): %v", id, sid, err)
	suite.Require().NotNilf(putRes.Version, "PutIfPresent(id=%d, sid=%d) returns nil Version", id, sid)

	currVersion := putRes.Version

	// Get and check the updated row.
	getRes, err = suite.Client.Get(getReq)
	suite.Require().NoErrorf(err, "Get(id=%d, sid=%d): %v", id, sid, err)
	suite.Require().Truef(getRes.RowExists(), "Get(id=%d, sid=%d): cannot find the row", id, sid)
	retStr, _ = getRes.Value.GetString("cstr")
	suite.Require().Equalf(cstr, retStr, "unexpected value for \"cstr\"")

	// PutIfVersion
	cstr = "row-PutIfVersion-" + strconv.Itoa(id)
	value.Put("cstr", cstr)
	putReq = &nosqldb.PutRequest{
		TableName:    tableName,
		Value:        value,
		PutOption:    types.PutIfVersion,
		MatchVersion: currVersion,
	}
	putRes, err = suite.Client.Put(putReq)
	suite.Require().NoErrorf(err, "PutIfVersion(id=%d, sid=%d): %v", id, sid, err)
	suite.Require().NotNilf(putRes.Version, "PutIfVersion(id=%d, sid=%d) returns nil Version", id, sid)

	// PutIfAbsent
	id = 2
	cstr = "row-PutIfAbsent-" + strconv.Itoa(id)
	value.Put("id", id).Put("sid", sid).Put("cstr", cstr)
	putReq = &nosqldb.PutRequest{
		TableName: tableName,
		Value:     value,
		PutOption: types.PutIfAbsent,
	}
	putRes, err = suite.Client.Put(putReq)
	suite.Require().NoErrorf(err, "PutIfAbsent(id=%d, sid=%d): %v", id, sid, err)
	suite.Require().NotNilf(putRes.Version, "PutIfAbsent(id=%d, sid=%d) returns nil Version", id, sid)

	currVersion = putRes.Version

	// Delete the row.
	id = 1
	sid = 101
	key = &types.MapValue{}
	key.Put("id", id).Put("sid", sid)
	delReq := &nosqldb.DeleteRequest{
		TableName: tableName,
		Key:       key,
	}
	delRes, err := suite.Client.Delete(delReq)
	suite.Require().NoErrorf(err, "Delete(id=%d, sid=%d): %v", id, sid, err)
	suite.Require().Truef(delRes.Success, "Delete(id=%d, sid=%d) failed", id, sid)

	// DeleteIfVersion.
	id = 2
	sid = 101
	key = &types.MapValue{}
	key.Put("id", id).Put("sid", sid)
	delReq = &nosqldb.DeleteRequest{
		TableName:    tableName,
		Key:          key,
		MatchVersion: currVersion,
	}
	delRes, err = suite.Client.Delete(delReq)
	suite.Require().NoErrorf(err, "DeleteIfVersion(id=%d, sid=%d): %v", id, sid, err)
	suite.Require().Truef(delRes.Success, "DeleteIfVersion(id=%d, sid=%d) failed", id, sid)

	// Put more rows.
	n := 10
	id = 10
	sid = 102
	for i := 0; i < n; i++ {
		id++
		cstr = "row-Put-" + strconv.Itoa(id)
		value = &types.MapValue{}
		value.Put("id", id).Put("sid", sid)
		value.Put("clong", int64(id)).Put("cstr", cstr).Put("cdoub", 1.23)
		value.Put("cts", baseTime.Add(time.Duration(int64(id))))

		putReq = &nosqldb.PutRequest{
			TableName: tableName,
			Value:     value,
		}
		putRes, err = suite.Client.Put(putReq)
		suite.Require().NoErrorf(err, "Put(id=%d, sid=%d): %v", id, sid, err)
		suite.Require().NotNilf(putRes.Version, "Put(id=%d, sid=%d) returns nil Version", id, sid)
	}

	// Create indexes on the "cstr" and "clong" columns.
	idx1 := "idx1"
	stmt = fmt.Sprintf("CREATE INDEX %s ON %s(%s)", idx1, tableName, "cstr")
	tableReq = &nosqldb.TableRequest{
		Statement: stmt,
	}
	tableRes, err = suite.Client.DoTableRequestAndWait(tableReq, 20*time.Second, 2*time.Second)
	suite.Require().NoErrorf(err, "\"%s\": %v", stmt, err)
	suite.Require().Equalf(types.Active, tableRes.State, "unexpected table state")

	idx2 := "idx2"
	stmt = fmt.Sprintf("CREATE INDEX %s ON %s(%s)", idx2, tableName, "clong")
	tableReq = &nosqldb.TableRequest{
		Statement: stmt,
	}
	tableRes, err = suite.Client.DoTableRequest(tableReq)
	suite.Require().NoErrorf(err, "\"%s\": %v", stmt, err)
	tableRes, err = tableRes.WaitForCompletion(suite.Client, 20*time.Second, 2*time.Second)
	suite.Require().NoErrorf(err, "WaitForCompletion(op=createIndex(idxName=%s, tableName=%s)): %v", idx2, tableName, err)
	suite.Require().Equalf(types.Active, tableRes.State, "unexpected table state")

	// Query
	id = 11
	sid = 102
	stmt = fmt.Sprintf("SELECT clong, cstr FROM %s WHERE id=%d AND sid=%d", tableName, id, sid)
	queryReq := &nosqldb.QueryRequest{
		Statement:   stmt,
		Consistency: types.Absolute,
	}
	queryRes, err := suite.Client.Query(queryReq)
	suite.Require().NoErrorf(err, "Query(stmt=%s): %v", stmt, err)
	results, err := queryRes.GetResults()
	suite.Require().NoErrorf(err, "QueryResult.GetResults() got error %v", err)
	suite.Require().Equalf(1, len(results), "unexpected number of results")
	retLong, _ := results[0].GetInt64("clong")
	suite.Require().Equalf(int64(id), retLong, "unexpected value for \"clong\"")
	retStr, _ = results[0].GetString("cstr")
	cstr = "row-Put-" + strconv.Itoa(id)
	suite.Require().Equalf(cstr, retStr, "unexpected value for \"cstr\"")

	// Prepare and query.
	id = 12
	sid = 102
	stmt = fmt.Sprintf("SELECT clong, cstr FROM %s WHERE id=%d AND sid=%d", tableName, id, sid)
	prepReq := &nosqldb.PrepareRequest{
		Statement: stmt,
	}
	prepRes, err := suite.Client.Prepare(prepReq)
	suite.Require().NoErrorf(err, "Prepare(stmt=%s): %v", stmt, err)

	queryReq = &nosqldb.QueryRequest{
		PreparedStatement: &prepRes.PreparedStatement,
		Consistency:       types.Absolute,
	}
	queryRes, err = suite.Client.Query(queryReq)
	suite.Require().NoErrorf(err, "PreparedQuery(stmt=%s): %v", stmt, err)

	results, err = queryRes.GetResults()
	suite.Require().NoErrorf(err, "PreparedQuery.GetResults() got error %v", err)

	suite.Require().Equalf(1, len(results), "unexpected number of results")
	retLong, _ = results[0].GetInt64("clong")
	suite.Require().Equalf(int64(id), retLong, "unexpected value for \"clong\"")
	retStr, _ = results[0].GetString("cstr")
	cstr = "row-Put-" + strconv.Itoa(id)
	suite.Require().Equalf(cstr, retStr, "unexpected value for \"cstr\"")

	// Query by index.
	stmt = fmt.Sprintf("DECLARE $cl LONG; SELECT id, sid FROM %s WHERE clong=$cl", tableName)
	prepReq = &nosqldb.PrepareRequest{
		Statement: stmt,
	}
	prepRes, err = suite.Client.Prepare(prepReq)
	suite.Require().NoErrorf(err, "Prepare(stmt=%s): %v", stmt, err)

	// Bind the variables and query.
	clong := int64(11)
	for i := 0; i < 5; i++ {
		prepRes.PreparedStatement.SetVariable("$cl", clong)
		queryReq = &nosqldb.QueryRequest{
			PreparedStatement: &prepRes.PreparedStatement,
			Consistency:       types.Eventual,
		}
		queryRes, err = suite.Client.Query(queryReq)
		suite.Require().NoErrorf(err, "PreparedQuery(stmt=%s, clong=%d): %v", stmt, clong, err)

		results, err = queryRes.GetResults()
		suite.Require().NoErrorf(err, "PreparedQuery.GetResults() got error %v", err)

		suite.Require().Equalf(1, len(results), "unexpected number of results")
		retId, _ := results[0].GetInt("id")
		suite.Require().Equalf(int(clong), retId, "unexpected value for \"id\"")
		retSid, _ := results[0].GetInt("sid")
		suite.Require().Equalf(sid, retSid, "unexpected value for \"sid\"")

		clong++
	}

	// Delete the range of rows written above via individual Delete calls,
	// since multi-key range deletes are out of scope.
	sid = 102
	for delID := 11; delID < 16; delID++ {
		key = &types.MapValue{}
		key.Put("id", delID).Put("sid", sid)
		delReq = &nosqldb.DeleteRequest{
			TableName: tableName,
			Key:       key,
		}
		delRes, err = suite.Client.Delete(delReq)
		suite.Require().NoErrorf(err, "Delete(id=%d, sid=%d): %v", delID, sid, err)
		suite.Require().Truef(delRes.Success, "Delete(id=%d, sid=%d) failed", delID, sid)
	}
}

func TestSmoke(t *testing.T) {
	test := &SmokeTestSuite{
		NoSQLTestSuite: test.NewNoSQLTestSuite(),
	}
	suite.Run(t, test)
}
