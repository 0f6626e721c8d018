//
// Copyright (c) 2019, 2020 Oracle and/or its affiliates.  All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at
//  https://oss.oracle.com/licenses/upl/
//

// +build cloud onprem

package nosqldb_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/nosqlkv/kvdriver/internal/test"
	"github.com/nosqlkv/kvdriver/nosqldb"
	"github.com/nosqlkv/kvdriver/nosqldb/nosqlerr"
	"github.com/nosqlkv/kvdriver/nosqldb/types"
	"github.com/stretchr/testify/suite"
)

// TableOpsTestSuite contains tests for table operation APIs:
//
//   DoTableRequest
//   DoTableRequestAndWait
//   GetTable
//
type TableOpsTestSuite struct {
	*test.NoSQLTestSuite
	table string
	ns    string // Namespace name.
}

type tableRequestTestCase struct {
	req    *nosqldb.TableRequest
	expErr nosqlerr.ErrorCode // Expected error code.
}

func (suite *TableOpsTestSuite) SetupSuite() {
	suite.NoSQLTestSuite.SetupSuite()

	const stmt string = "CREATE TABLE IF NOT EXISTS %s (id INTEGER, c1 STRING, c2 LONG, PRIMARY KEY(id))"
	suite.table = suite.GetTableName("TableOps")
	createStmt := fmt.Sprintf(stmt, suite.table)
	suite.ReCreateTable(suite.table, createStmt, test.OkTableLimits)

	// Create a namespace and table in that namespace.
	if test.IsOnPrem() {
		suite.ns = "Ns001"
		suite.ExecuteDDL("create namespace if not exists " + suite.ns)
	}
}

// TestTableDDLRequest tests table DDL operations using TableRequest API.
func (suite *TableOpsTestSuite) TestTableDDLRequest() {
	tableName := suite.GetTableName("TableDDLTest")
	testCases := getTableDDLTestCases(tableName)

	// Do table DDL operations with a namespace qualified table.
	if test.IsOnPrem() {
		tableName = suite.GetNsTableName(suite.ns, "TableDDLTest")
		test02 := getTableDDLTestCases(tableName)
		testCases = append(testCases, test02...)
	}

	suite.doTableRequestTest(testCases)
}

// TestTableLimits tests operations that change table limits using TableRequest API.
func (suite *TableOpsTestSuite) TestTableLimits() {
	tableName := suite.table
	var testCases []*tableRequestTestCase

	if test.IsOnPrem() {
		// Change table limits operation is not supported for on-prem.
		testCases = []*tableRequestTestCase{
			{
				req: &nosqldb.TableRequest{
					TableName:   tableName,
					TableLimits: &nosqldb.TableLimits{5, 5, 2},
					Timeout:     test.OkTimeout,
				},
				expErr: nosqlerr.OperationNotSupported,
			},
		}

	} else {
		testCases = []*tableRequestTestCase{
			// Positive test cases.
			{
				req: &nosqldb.TableRequest{
					TableName:   tableName,
					TableLimits: &nosqldb.TableLimits{5, 5, 2},
					Timeout:     test.OkTimeout,
				},
			},
			{
				req: &nosqldb.TableRequest{
					TableName:   tableName,
					TableLimits: &nosqldb.TableLimits{6, 4, 1},
					Timeout:     test.OkTimeout,
				},
			},
			// Negative test cases.
			//
			// Invalid table name.
			{
				req: &nosqldb.TableRequest{
					TableName:   "",
					TableLimits: test.OkTableLimits,
					Timeout:     test.OkTimeout,
				},
				expErr: nosqlerr.IllegalArgument,
			},
			{
				req: &nosqldb.TableRequest{
					TableName:   "NotExistsTable",
					TableLimits: test.OkTableLimits,
					Timeout:     test.OkTimeout,
				},
				expErr: nosqlerr.TableNotFound,
			},
			// Invalid table limits.
			{
				req: &nosqldb.TableRequest{
					TableName:   tableName,
					TableLimits: nil,
					Timeout:     test.OkTimeout,
				},
				expErr: nosqlerr.IllegalArgument,
			},
			{
				req: &nosqldb.TableRequest{
					TableName:   tableName,
					TableLimits: test.BadTableLimits,
					Timeout:     test.OkTimeout,
				},
				expErr: nosqlerr.IllegalArgument,
			},
			// Invalid timeout.
			{
				req: &nosqldb.TableRequest{
					TableName:   tableName,
					TableLimits: test.OkTableLimits,
					Timeout:     test.BadTimeout,
				},
				expErr: nosqlerr.IllegalArgument,
			},
		}
	}

	suite.doTableRequestTest(testCases)
}

// TestWaitForCompletion performs tests for the WaitForCompletion API.
func (suite *TableOpsTestSuite) TestWaitForCompletion() {
	tableName := suite.table
	testCases := []*struct {
		desc     string
		tableRes *nosqldb.TableResult
		client   *nosqldb.Client
		timeout  time.Duration
		delay    time.Duration
		expErr   nosqlerr.ErrorCode
	}{
		// nil TableResult
		{
			"nil TableResult",
			nil,
			suite.Client,
			test.OkTimeout,
			time.Second,
			nosqlerr.IllegalArgument,
		},
		// nil client
		{
			"nil Client",
			&nosqldb.TableResult{TableName: tableName, OperationID: "1234", State: types.Creating},
			nil,
			test.OkTimeout,
			time.Second,
			nosqlerr.IllegalArgument,
		},
		{
			"empty OperationID",
			&nosqldb.TableResult{TableName: tableName, OperationID: "", State: types.Creating},
			suite.Client,
			test.WaitTimeout,
			time.Second,
			nosqlerr.IllegalArgument,
		},
		{
			"pollInterval is less than 1ms",
			&nosqldb.TableResult{TableName: tableName, OperationID: "1234", State: types.Creating},
			suite.Client,
			time.Second,
			time.Millisecond - 1,
			nosqlerr.IllegalArgument,
		},
		{
			"waitTimeout is less than pollInterval",
			&nosqldb.TableResult{TableName: tableName, OperationID: "1234", State: types.Creating},
			suite.Client,
			500*time.Millisecond - 1, // wait timeout
			500 * time.Millisecond,   // delay
			nosqlerr.IllegalArgument,
		},
		{
			"table is in Active state",
			&nosqldb.TableResult{TableName: tableName, OperationID: "1234", State: types.Active},
			suite.Client,
			test.OkTimeout,
			time.Second,
			nosqlerr.NoError,
		},
		{
			"table is in Dropped state",
			&nosqldb.TableResult{TableName: tableName, OperationID: "1234", State: types.Dropped},
			suite.Client,
			test.OkTimeout,
			time.Second,
			nosqlerr.NoError,
		},
	}

	var err error
	var msg string
	var reqTableName string
	for i, r := range testCases {
		if r.tableRes != nil {
			reqTableName = r.tableRes.TableName
		} else {
			reqTableName = "<nil TableResult>"
		}

		msg = fmt.Sprintf("Testcase %d(%s): WaitForCompletion(tableName=%q) ",
			i+1, r.desc, reqTableName)
		_, err = r.tableRes.WaitForCompletion(r.client, r.timeout, r.delay)
		switch r.expErr {
		case nosqlerr.NoError:
			suite.NoErrorf(err, msg+"got error %v", err)

		default:
			suite.Truef(nosqlerr.Is(err, r.expErr),
				msg+"expect error: %v, got error: %v", r.expErr, err)
		}
	}
}

func (suite *TableOpsTestSuite) TestGetTable() {
	const numTables = 6
	const maxNumCols = 10
	const maxLimits = 5

	var table string
	var msgPrefix string
	var limits *nosqldb.TableLimits

	for i := 1; i <= numTables; i++ {
		table = suite.GetTableName(fmt.Sprintf("Table%d", i))
		if test.IsCloud() {
			limits = &nosqldb.TableLimits{
				ReadUnits:  uint(1 + rand.Intn(maxLimits)),
				WriteUnits: uint(1 + rand.Intn(maxLimits)),
				StorageGB:  uint(1 + rand.Intn(maxLimits)),
			}

		} else {
			limits = nil
			// Create tables in the specified namespace.
			if i%2 == 0 {
				table = suite.GetNsTableName(suite.ns, table)
			}
		}

		numCols := 1 + rand.Intn(maxNumCols)
		stmt := test.GenCreateTableStmt(table, numCols, "C")
		suite.ReCreateTable(table, stmt, limits)

		msgPrefix = fmt.Sprintf("Testcase %d: GetTable(table=%q) ", i, table)
		req := &nosqldb.GetTableRequest{
			TableName: table,
			Timeout:   test.OkTimeout,
		}
		res, err := suite.Client.GetTable(req)
		if !suite.NoErrorf(err, msgPrefix+"got error %v", err) {
			continue
		}

		suite.Equalf(table, res.TableName, msgPrefix+"got unexpected table name.")
		suite.Equalf(types.Active, res.State, msgPrefix+"got unexpected table state.")
		// Verify table limits are set as expected.
		if limits != nil {
			suite.Equalf(*limits, res.Limits, msgPrefix+"got unexpected table limits.")
		} else {
			// If test with on-prem server, the returned table limits should be zero.
			suite.Equalf(nosqldb.TableLimits{}, res.Limits, msgPrefix+"got unexpected table limits.")
		}
	}

	table = suite.table
	// Negative tests
	testCases := []struct {
		req    *nosqldb.GetTableRequest
		expErr nosqlerr.ErrorCode
	}{
		// nil request
		{nil, nosqlerr.IllegalArgument},
		// invalid table name
		{&nosqldb.GetTableRequest{TableName: ""}, nosqlerr.IllegalArgument},
		{&nosqldb.GetTableRequest{TableName: "not_exists_table"}, nosqlerr.TableNotFound},
		// invalid operation id
		{&nosqldb.GetTableRequest{TableName: table, OperationID: "not_exists_op_id"}, nosqlerr.IllegalArgument},
		// invalid timeout
		{&nosqldb.GetTableRequest{TableName: table, Timeout: test.BadTimeout}, nosqlerr.IllegalArgument},
	}

	for i, r := range testCases {
		msgPrefix = fmt.Sprintf("Testcase %d: GetTable(%#v) ", i+1, r.req)
		_, err := suite.Client.GetTable(r.req)
		if !suite.Errorf(err, msgPrefix+"should have failed with error %v, but succeeded.", r.expErr) {
			continue
		}

		suite.Truef(nosqlerr.Is(err, r.expErr), msgPrefix+"expect error: %v, got error: %v.", r.expErr, err)
	}
}

func (suite *TableOpsTestSuite) doTableRequestTest(testCases []*tableRequestTestCase) {
	for _, r := range testCases {
		res, err := suite.Client.DoTableRequestAndWait(r.req, test.WaitTimeout, time.Second)
		switch r.expErr {
		case nosqlerr.NoError:
			if suite.NoErrorf(err, "TableRequest(req=%#v) got error: %v", r.req, err) {
				// Verify table limits.
				if test.IsOnPrem() {
					suite.Equalf(nosqldb.TableLimits{}, res.Limits,
						"the returned table limits %#v is wrong.", res.Limits)

				} else {
					if r.req != nil && r.req.TableLimits != nil {
						suite.Equalf(*r.req.TableLimits, res.Limits,
							"the returned table limits %#v is wrong.", res.Limits)
					}
				}
			}

		default:
			suite.Truef(nosqlerr.Is(err, r.expErr), "TableRequest(req=%v) expect error: %v, got error: %v",
				r.req, r.expErr, err)
		}
	}
}

// getTableDDLTestCases returns a list of test cases for table DDL operations.
// The test cases are applicable for both cloud and on-premise.
func getTableDDLTestCases(table string) []*tableRequestTestCase {
	idx1 := "idx1"
	idx2 := "idx2"
	idx3 := "idx3"
	tmpl := "create table %s (id integer, c1 string, c2 long, c3 float, primary key(id))"
	createTable := fmt.Sprintf(tmpl, table)
	createTableIf := fmt.Sprintf(tmpl, "if not exists "+table)
	addColumnC4 := fmt.Sprintf("alter table %s (add c4 integer)", table)
	addColumnC5 := fmt.Sprintf("alter table %s (add c5 integer)", table)
	dropColumnC5 := fmt.Sprintf("alter table %s (drop c5)", table)
	createIndexOnC1 := fmt.Sprintf("create index %s on %s(c1)", idx1, table)
	createIndexOnC23 := fmt.Sprintf("create index %s on %s(c2, c3)", idx2, table)
	createIndexOnC4 := fmt.Sprintf("create index %s on %s(c4)", idx3, table)
	dropIndex := fmt.Sprintf("drop index %s on %s", idx1, table)
	dropIndexIf := fmt.Sprintf("drop index if exists %s on %s", idx1, table)
	dropTable := fmt.Sprintf("drop table %s", table)
	dropTableIf := fmt.Sprintf("drop table if exists %s", table)

	okTimeout := test.OkTimeout
	badTimeout := test.BadTimeout
	okTableLimits := test.OkTableLimits

	return []*tableRequestTestCase{
		// Postive test cases.
		//
		// Drop table if exists.
		{
			req: &nosqldb.TableRequest{
				Statement: fmt.Sprintf("drop table if exists %s", table),
				Timeout:   okTimeout,
			},
		},
		// Create table.
		{
			req: &nosqldb.TableRequest{
				Statement:   createTable,
				TableLimits: okTableLimits,
				Timeout:     okTimeout,
			},
		},
		// Create table if not exists.
		{
			req: &nosqldb.TableRequest{
				Statement:   createTableIf,
				TableLimits: okTableLimits,
				Timeout:     okTimeout,
			},
		},
		// Create index.
		{
			req: &nosqldb.TableRequest{
				Statement: createIndexOnC1,
				Timeout:   okTimeout,
			},
		},
		// Create index. Using default timeout.
		{
			req: &nosqldb.TableRequest{
				Statement: createIndexOnC23,
			},
		},
		// Add a new column c4.
		{
			req: &nosqldb.TableRequest{
				Statement: addColumnC4,
				Timeout:   okTimeout,
			},
		},
		// Create an index on column c4
		{
			req: &nosqldb.TableRequest{
				Statement: createIndexOnC4,
				Timeout:   okTimeout,
			},
		},
		// Add a new column c5.
		{
			req: &nosqldb.TableRequest{
				Statement: addColumnC5,
				Timeout:   okTimeout,
			},
		},
		// Drop column c5
		{
			req: &nosqldb.TableRequest{
				Statement: dropColumnC5,
				Timeout:   okTimeout,
			},
		},
		// Negative test cases.
		//
		// nil request
		{
			req:    nil,
			expErr: nosqlerr.IllegalArgument,
		},
		// table already exists
		{
			req: &nosqldb.TableRequest{
				Statement:   createTable,
				TableLimits: okTableLimits,
				Timeout:     okTimeout,
			},
			expErr: nosqlerr.TableExists,
		},
		// An empty table ddl statement.
		{
			req: &nosqldb.TableRequest{
				Statement:   "",
				TableLimits: okTableLimits,
				Timeout:     okTimeout,
			},
			expErr: nosqlerr.IllegalArgument,
		},
		// Invalid statements.
		{
			req: &nosqldb.TableRequest{
				Statement:   "create table",
				TableLimits: okTableLimits,
				Timeout:     okTimeout,
			},
			expErr: nosqlerr.IllegalArgument,
		},
		{
			req: &nosqldb.TableRequest{
				Statement:   "create tab x (id integer, primary key(id))",
				TableLimits: okTableLimits,
				Timeout:     okTimeout,
			},
			expErr: nosqlerr.IllegalArgument,
		},
		// Invalid table names.
		{
			req: &nosqldb.TableRequest{
				Statement:   "create table 123 (id integer, primary key(id))",
				TableLimits: okTableLimits,
				Timeout:     okTimeout,
			},
			expErr: nosqlerr.IllegalArgument,
		},
		{
			req: &nosqldb.TableRequest{
				Statement:   "create table name$ (id integer, primary key(id))",
				TableLimits: okTableLimits,
				Timeout:     okTimeout,
			},
			expErr: nosqlerr.IllegalArgument,
		},
		// Full text index is not supported for cloud.
		// It is supported for on-prem if an Elasticsearch cluster is registered
		// with the store.
		{
			req: &nosqldb.TableRequest{
				Statement: fmt.Sprintf("create fulltext index textIdx on %s(c1)", table),
			},
			expErr: nosqlerr.IllegalArgument,
		},
		// Modify column is not supported.
		{
			req: &nosqldb.TableRequest{
				Statement: fmt.Sprintf("alter table %s (modify c4 long)", table),
			},
			expErr: nosqlerr.IllegalArgument,
		},
		// Create an index on a non exists table.
		{
			req: &nosqldb.TableRequest{
				Statement: "create index idx9 on not_exists_table(c3)",
				Timeout:   okTimeout,
			},
			expErr: nosqlerr.TableNotFound,
		},
		// Create an index on a non exists column.
		{
			req: &nosqldb.TableRequest{
				Statement: fmt.Sprintf("create index idx10 on %s(NoSuchColumn)", table),
				Timeout:   okTimeout,
			},
			expErr: nosqlerr.IllegalArgument,
		},
		// Specify an invalid timeout.
		{
			req: &nosqldb.TableRequest{
				Statement:   createTable,
				TableLimits: okTableLimits,
				Timeout:     badTimeout,
			},
			expErr: nosqlerr.IllegalArgument,
		},
		// Table already exists.
		{
			req: &nosqldb.TableRequest{
				Statement:   createTable,
				TableLimits: okTableLimits,
				Timeout:     okTimeout,
			},
			expErr: nosqlerr.TableExists,
		},
		// Index already exists.
		{
			req: &nosqldb.TableRequest{
				Statement: createIndexOnC1,
				Timeout:   okTimeout,
			},
			expErr: nosqlerr.IndexExists,
		},
		// Index not found
		{
			req: &nosqldb.TableRequest{
				Statement: "drop index not_exists_idx on " + table,
				Timeout:   okTimeout,
			},
			expErr: nosqlerr.IndexNotFound,
		},
		// Drop indexes.
		{
			req: &nosqldb.TableRequest{
				Statement: dropIndex,
				Timeout:   okTimeout,
			},
		},
		{
			req: &nosqldb.TableRequest{
				Statement: dropIndexIf,
				Timeout:   okTimeout,
			},
		},
		// Drop tables.
		{
			req: &nosqldb.TableRequest{
				Statement: dropTable,
				Timeout:   okTimeout,
			},
		},
		{
			req: &nosqldb.TableRequest{
				Statement: dropTable,
				Timeout:   okTimeout,
			},
			expErr: nosqlerr.TableNotFound,
		},
		{
			req: &nosqldb.TableRequest{
				Statement: dropTableIf,
				Timeout:   okTimeout,
			},
		},
	}

}

func TestTableOperations(t *testing.T) {
	tests := &TableOpsTestSuite{
		NoSQLTestSuite: test.NewNoSQLTestSuite(),
	}
	suite.Run(t, tests)
}
