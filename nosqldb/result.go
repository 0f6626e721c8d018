//
// Copyright (c) 2019, 2022 Oracle and/or its affiliates. All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at
//  https://oss.oracle.com/licenses/upl/
//

package nosqldb

import (
	"context"
	"time"

	"github.com/nosqlkv/kvdriver/nosqldb/common"
	"github.com/nosqlkv/kvdriver/nosqldb/jsonutil"
	"github.com/nosqlkv/kvdriver/nosqldb/nosqlerr"
	"github.com/nosqlkv/kvdriver/nosqldb/types"
)

var errNilClient = nosqlerr.NewIllegalArgument("client must be non-nil")

// Result is an interface that represents the operation result for a request.
//
// All operation results should satisfy this interface.
type Result interface {
	// ConsumedCapacity is a function used to return the read, write throughput
	// consumed by an operation.
	ConsumedCapacity() (Capacity, error)

	Delayed() *DelayInfo

	// RetryStats returns the retry statistics accumulated while executing
	// the request that produced this result.
	RetryStats() common.RetryStats
}

// DelayInfo contains information about the amount of time a request was delayed.
type DelayInfo struct {
	// RateLimitTime represents the time delayed due to internal rate limiting.
	RateLimitTime time.Duration
	// RetryTime represents the time delayed due to internal request retries.
	RetryTime time.Duration
	// Stats holds the detailed per-request retry statistics: attempt count,
	// accumulated backoff delay, and the multiset of errors that triggered
	// a retry.
	Stats common.RetryStats
}

// Delayed returns the time delay information for a completed request. It
// returns a pointer to the embedded DelayInfo of the concrete Result so that
// setRateLimitTime/setRetryTime below mutate the result itself, not a copy.
func (d *DelayInfo) Delayed() *DelayInfo {
	return d
}

// RetryStats returns the retry statistics recorded onto this result.
func (d *DelayInfo) RetryStats() common.RetryStats {
	return d.Stats
}

func (d *DelayInfo) setRateLimitTime(t time.Duration) {
	d.RateLimitTime = t
}

func (d *DelayInfo) setRetryTime(t time.Duration) {
	d.RetryTime = t
}

func (d *DelayInfo) setRetryStats(s common.RetryStats) {
	d.Stats = s
}

// Capacity represents the read/write throughput consumed by an operation.
type Capacity struct {
	// ReadKB represents the number of kilo bytes consumed for reads.
	ReadKB int `json:"readKB"`

	// WriteKB represents the number of kilo bytes consumed for writes.
	WriteKB int `json:"writeKB"`

	// ReadUnits represents the number of read units consumed for reads.
	//
	// A read unit represents 1 eventually consistent read per second for data
	// up to 1 KB in size. A read that is absolutely consistent is double that,
	// consuming 2 read units for a read of up to 1 KB in size.
	ReadUnits int `json:"readUnits"`
}

// String returns a JSON string representation of the Capacity.
func (r Capacity) String() string {
	return jsonutil.AsJSON(r)
}

// ConsumedCapacity returns the read/write throughput consumed by an operation.
func (r Capacity) ConsumedCapacity() (Capacity, error) {
	return r, nil
}

// noCapacity represents an empty capacity.
//
// It implements the Result interface and is used for operations that do not
// care about consumed capacity.
type noCapacity struct{}

func (r noCapacity) ConsumedCapacity() (Capacity, error) {
	return Capacity{}, nil
}

// GetResult represents the result of a Client.Get() operation.
//
// On a successful operation the value of the row is available in
// GetResult.Value and the other state available in this struct is valid.
//
// On failure that value is nil and other state, other than consumed capacity,
// is undefined.
type GetResult struct {
	Capacity

	// Value represents the value of the returned row, or nil if the row does not exist.
	Value *types.MapValue `json:"value"`

	// Version represents the version of the row if the operation was
	// successful, or nil if the row does not exist.
	Version types.Version `json:"version"`

	// ExpirationTime represents the expiration time of the row.
	// A zero value of time.Time indicates that the row does not expire.
	// This value is valid only if the operation successfully returned a row,
	// which means the returned Value is non-nil.
	ExpirationTime time.Time `json:"expirationTime"`

	DelayInfo
}

// String returns a JSON string representation of the GetResult.
func (r GetResult) String() string {
	return jsonutil.AsJSON(r)
}

// ValueAsJSON returns a JSON string representation of the GetResult.Value.
func (r GetResult) ValueAsJSON() string {
	if r.Value == nil {
		return ""
	}
	return jsonutil.AsJSON(r.Value.Map())
}

// RowExists checks if the desired row exists.
// It returns true if the get operation successfully finds the row with
// specified key, returns false otherwise.
func (r GetResult) RowExists() bool {
	return len(r.Version) > 0
}

// TableResult is returned from Client.GetTable() and Client.DoTableRequest()
// operations. It encapsulates the state of the table specified in the request.
//
// Operations available in Client.DoTableRequest() such as table creation,
// modification and drop are asynchronous operations. When such an operation has
// been performend, it is necessary to call Client.GetTable() until the status
// of the table is Active or there is an error condition. TableResult provides
// a convenience method WaitForCompletion() to perform such tasks and should be
// used whenever possible.
//
// Client.GetTable() is synchronous, it returns static information about the
// table as well as its current state.
type TableResult struct {
	noCapacity
	DelayInfo

	// TableName represents the name of target table.
	TableName string `json:"tableName"`

	// State represents current state of the table.
	// A table in Active state or Updating state is usable for normal operation.
	// It is not permitted to perform table modification operations while the
	// table is in Updating state.
	State types.TableState `json:"state"`

	// Limits represents read/write throughput and storage limits for the table.
	Limits TableLimits `json:"limits"`

	// Schema represents table schema and any other metadata available for the table.
	// The returned schema may subject to change in future releases.
	Schema string `json:"schema"`

	// OperationID represents the operation id for an asynchronous operation.
	// This is empty if the request did not generate a new operation. The value
	// can be used in GetTableRequest.OperationId to find potential errors
	// resulting from the operation.
	OperationID string `json:"operationID"`
}

// String returns a JSON string representation of the TableResult.
func (r TableResult) String() string {
	return jsonutil.AsJSON(r)
}

// WaitForCompletion waits for a table operation to complete.
//
// Table operations are asynchronous. The method blocks checking for the table
// state until the specified timeout elapses or the table reaches a terminal
// state, which is either Active or Dropped. It is a polling style wait that
// pauses the current goroutine for a specified duration between each polling
// attempts.
//
// This instance must be the return value of a previous Client.DoTtableRequest()
// and contain a non-nil operation id representing the in-progress operation
// unless the operation has already completed.
//
// The timeout parameter specifies the total amount of time to wait. It must be
// greater than the specified pollInterval.
//
// The pollInterval parameter specifies the amount of time to wait between
// polling attempts. It must be greater than or equal to 1 millisecond. If it
// is set to zero, the default of 500 milliseconds will be used.
//
// If the table has reached the terminal state before specified timeout elapses,
// the method returns a TableResult that contains the current table state, and a
// nil error. Otherwise, it returns a nil TableResult and the error ocurred.
//
// This instance is modified with any change in table state or metadata.
func (r *TableResult) WaitForCompletion(client *Client, timeout, pollInterval time.Duration) (*TableResult, error) {
	if r == nil {
		return nil, nosqlerr.NewIllegalArgument("TableResult must be non-nil")
	}

	if r.State.IsTerminal() {
		return r, nil
	}

	if r.OperationID == "" {
		return nil, nosqlerr.NewIllegalArgument("OperationID must not be empty")
	}

	if client == nil {
		return nil, errNilClient
	}

	if pollInterval == 0 {
		pollInterval = 500 * time.Millisecond
	}

	var err error
	if err = validateWaitTimeout(timeout, pollInterval); err != nil {
		return nil, err
	}

	var req *GetTableRequest
	var res *TableResult
	// Creates a GetTableRequest with the table name and operation id.
	req = &GetTableRequest{
		TableName:   r.TableName,
		OperationID: r.OperationID,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		res, err = client.getTableWithContext(ctx, req)
		if err != nil {
			return nil, err
		}

		if res != nil && res.State.IsTerminal() {
			// Do partial "copy" of possibly modified state. Do not modify
			// OperationID as that is what we are waiting to complete.
			r.State = res.State
			r.Limits = res.Limits
			r.Schema = res.Schema
			return r, nil
		}

		// Target table has not reached the desired state, continue to check
		// its status after the specified delay if specified timeout has not elapsed.
		if shouldRetryAfter(ctx, pollInterval) {
			continue
		}

		return nil, nosqlerr.NewRequestTimeout("table %q does not reach a terminal state "+
			"within specified time %v", r.TableName, timeout)
	}
}

// WriteResult represents the result of single row for write operations such as put and delete.
type WriteResult struct {
	// ExistingVersion represents the Version of an existing row.
	ExistingVersion types.Version `json:"existingVersion"`

	// ExistingValue represents the Value of an existing row.
	ExistingValue *types.MapValue `json:"existingValue"`
}

// String returns a JSON string representation of the WriteResult.
func (r WriteResult) String() string {
	return jsonutil.AsJSON(r)
}

// ExistingValueAsJSON returns a JSON string representation of the ExistingValue.
func (r WriteResult) ExistingValueAsJSON() string {
	return jsonutil.AsJSON(r.ExistingValue)
}

// DeleteResult represents the result of a Client.Delete() operation.
//
// If the delete succeeded DeleteResult.Success returns true. Information about
// the existing row on failure may be available using DeleteResult.ExistingValue
// and DeleteResult.ExistingVersion, depending on the use of DeleteRequest.ReturnRow.
type DeleteResult struct {
	Capacity
	DelayInfo

	// WriteResult is used to get the information about the existing row such as
	// ExistingValue and ExistingVersion on operation failure.
	WriteResult

	// Success represents if the delete operation succeeded or not.
	Success bool `json:"success"`
}

// String returns a JSON string representation of the DeleteResult.
func (r DeleteResult) String() string {
	return jsonutil.AsJSON(r)
}

// PutResult represents the result of a Client.Put() operation.
//
// On a successful operation the value returned by PutResult.Version is non-nil.
//
// On failure that value is nil. Information about the existing row on failure
// may be available using PutResult.ExistingValue and PutResult.ExistingVersion,
// depending on the use of PutRequest.ReturnRow and whether the put had set the
// PutIfAbsent or PutIfVersion option.
type PutResult struct {
	Capacity
	DelayInfo

	// WriteResult is used to get the information about the existing row such as
	// ExistingValue and ExistingVersion on operation failure.
	WriteResult

	// Version represents the version of the new row if the operation was
	// successful. If the operation failed nil is returned.
	Version types.Version `json:"version"`

	// GeneratedValue represents the value generated if the operation
	// created a new value for an identity column or string as uuid
	// column. If a value was generated for the column, it is non-nil,
	// otherwise it is nil.
	GeneratedValue types.FieldValue `json:"generatedValue"`
}

// String returns a JSON string representation of the PutResult.
func (r PutResult) String() string {
	return jsonutil.AsJSON(r)
}

// Success returns whether the put operation succeeded.
func (r PutResult) Success() bool {
	return len(r.Version) > 0
}

// PrepareResult represents the result of a Client.Prepare() operation.
//
// The returned PreparedStatement can be re-used for query execution using
// QueryRequest.PreparedStatement.
type PrepareResult struct {
	Capacity
	DelayInfo

	// PreparedStatement represents the value of the prepared statement.
	PreparedStatement PreparedStatement `json:"preparedStatement"`
}

// String returns a JSON string representation of the PrepareResult.
func (r PrepareResult) String() string {
	return jsonutil.AsJSON(r)
}

// QueryResult represents the result of a Client.Query() operation.
//
// It comprises a list of MapValue instances representing the query results.
// The shape of the values is based on the schema implied by the query. For
// example a query such as "SELECT * FROM ..." that returns an intact row will
// return values that conform to the schema of the table. Projections return
// instances that conform to the schema implied by the statement. UPDATE
// queries either return values based on a RETURNING clause or, by default,
// the number of rows affected by the statement.
//
// It is possible for a query to return no results in an empty list.
// This happens if the query reads the maximum amount of data allowed in a
// single request without matching a query predicate.
//
// Applications need to check QueryRequest.IsDone() and continue to get more
// results if the query request is not completed.
type QueryResult struct {
	Capacity
	DelayInfo

	// The query request with which this query result is associated.
	request *QueryRequest

	// results represents a slice of MapValues for the query results.
	// It is possible to have an empty results and a non-nil continuation key.
	results []*types.MapValue

	// continuationKey represents the continuation key that can be used to
	// obtain more results if non-nil.
	continuationKey []byte

	// The following 6 fields are used only for "internal" QueryResults, i.e.,
	// those received and processed by the receiveIter.

	// reachedLimit indicates whether the query has reached the size limit or number limit.
	reachedLimit bool

	// isComputed indicates whether the query result has been computed for
	// current query batch.
	isComputed bool

	// The following 4 fields are used during phase 1 of a sorting ALL_PARTITIONS query.
	//
	// In this case, the "results" may store query results from multiple partitions.
	// If so, the results are grouped by partition and the partitionIDs,
	// numResultsPerPart, and contKeys fields store the partition id,
	// the number of results, and the continuation key per partition.
	// The isInPhase1 specifies whether phase 1 is done.
	isInPhase1        bool
	partitionIDs      []int
	numResultsPerPart []int
	contKeysPerPart   [][]byte
}

func newQueryResult(req *QueryRequest, isComputed bool) *QueryResult {
	return &QueryResult{
		request:    req,
		isComputed: isComputed,
	}
}

func (r *QueryResult) compute() (err error) {
	if r.isComputed {
		return
	}

	if err = r.request.driver.compute(r); err != nil {
		return
	}

	r.isComputed = true
	return
}

// GetResults returns query results as a slice of *types.MapValue.
//
// It is possible to return an empty result even though the query is not finished.
func (r *QueryResult) GetResults() (res []*types.MapValue, err error) {
	err = r.compute()
	if err != nil {
		return
	}
	return r.results, nil
}

func (r *QueryResult) getContinuationKey() ([]byte, error) {
	err := r.compute()
	if err != nil {
		return nil, err
	}
	return r.continuationKey, nil
}

// ConsumedCapacity returns the consumed capacity by the query request.
//
// This implements the Result interface.
func (r *QueryResult) ConsumedCapacity() (Capacity, error) {
	err := r.compute()
	if err != nil {
		return Capacity{}, err
	}

	return Capacity{
		ReadKB:    r.ReadKB,
		WriteKB:   r.WriteKB,
		ReadUnits: r.ReadUnits,
	}, nil
}

// String returns a JSON string representation of the QueryResult.
func (r QueryResult) String() string {
	return jsonutil.AsJSON(r)
}

func validateWaitTimeout(timeout, pollInterval time.Duration) error {
	if pollInterval < time.Millisecond {
		return nosqlerr.NewIllegalArgument("the specified poll interval %v is less than the allowed minimum of %v",
			pollInterval, time.Millisecond)
	}

	if timeout <= pollInterval {
		return nosqlerr.NewIllegalArgument("the specified timeout must be greater than the poll interval %v, got %v",
			pollInterval, timeout)
	}

	return nil
}

func shouldRetryAfter(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done(): // Timeout elapsed or context was canceled.
		return false
	}
}
