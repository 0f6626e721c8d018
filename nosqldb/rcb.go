//
// Copyright (c) 2019, 2024 Oracle and/or its affiliates. All rights reserved.
//
// Licensed under the Universal Permissive License v 1.0 as shown at
//  https://oss.oracle.com/licenses/upl/
//

package nosqldb

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strconv"

	"github.com/nosqlkv/kvdriver/nosqldb/internal/proto"
	"github.com/nosqlkv/kvdriver/nosqldb/internal/sdkutil"
	"github.com/nosqlkv/kvdriver/nosqldb/logger"
	"github.com/nosqlkv/kvdriver/nosqldb/nosqlerr"
	"github.com/nosqlkv/kvdriver/nosqldb/types"
)

const (
	// envQueryTraceLevel is the name of environment variable that specifies a
	// level for tracing NoSQL queries.
	// The value of trace level must be an integer that is greater than 0.
	envQueryTraceLevel string = "NOSQL_QUERY_TRACE_LEVEL"

	// envQueryTraceFile is the name of environment variable that specifies a
	// destination file where NoSQL query tracing outputs are written.
	envQueryTraceFile string = "NOSQL_QUERY_TRACE_FILE"
)

// queryTracer is a specialized logger used for tracing NoSQL queries.
// The traceLevel must be an integer that is greater than 0, otherwise
// query tracing is disabled.
type queryTracer struct {
	*logger.Logger
	traceLevel int
}

// newQueryLogger creates a queryTracer with trace level and trace file
// configurations from environment variables.
func newQueryLogger() (tracer *queryTracer, err error) {
	s, ok := os.LookupEnv(envQueryTraceLevel)
	if !ok {
		return nil, nil
	}

	traceLevel, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("the value of environment variable %q "+
			"must be an integer, got invalid value: %v", envQueryTraceLevel, s)
	}

	if traceLevel <= 0 {
		return nil, fmt.Errorf("the value of environment variable %q "+
			"must be greater than 0, got invalid value: %v", envQueryTraceLevel, traceLevel)
	}

	var out io.Writer
	filePath, ok := os.LookupEnv(envQueryTraceFile)
	if ok {
		traceFile, err := sdkutil.ExpandPath(filePath)
		if err != nil {
			return nil, fmt.Errorf("invalid value of environment variable %q: %v",
				envQueryTraceFile, err)
		}

		file, err := os.OpenFile(traceFile, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0640)
		if err != nil {
			return nil, fmt.Errorf("cannot open query trace file %s: %v", traceFile, err)
		}

		out = file
	}

	if out == nil {
		out = os.Stderr
	}

	return &queryTracer{
		Logger:     logger.New(out, logger.Trace, false),
		traceLevel: traceLevel,
	}, nil
}

// queryExecState holds the per-execution state a query plan needs while it
// runs. One instance exists per query execution and is threaded through
// every plan iterator invoked during that execution — iterators never hold
// their own copy of this state, they receive it on each call.
type queryExecState struct {
	// queryCursor is the coordinator that owns the Client, QueryRequest and
	// PreparedStatement this execution belongs to.
	*queryCursor

	// externalVars holds the bound values of the query's external variables.
	externalVars []types.FieldValue

	// rootIter is the root of the plan iterator tree being driven.
	rootIter planIter

	// iterStates holds one slot per planIter instance in the plan tree,
	// indexed by the position assigned to that iterator at plan build time.
	iterStates []planIterState

	// registers holds one slot per register slot allocated by the plan.
	registers []types.FieldValue

	// reachedLimit is set once a batch hits its size- or count-based limit;
	// when true, execution stops and the (possibly empty) batch collected so
	// far is handed back to the caller.
	reachedLimit bool

	// Capacity accumulates the readUnits/readKB/writeKB charged across the
	// execution of the current batch.
	Capacity

	// memoryConsumption tracks client-side memory spent on things like
	// duplicate elimination and sorting, in bytes.
	memoryConsumption int64

	// sqlHashTag caches a short tag derived from the query text's hash, used
	// to correlate trace lines belonging to the same query without repeating
	// the full statement on every line.
	sqlHashTag []byte
}

func newQueryExecState(driver *queryCursor, rootIter planIter, numIterators, numRegisters int,
	externalVars []types.FieldValue) *queryExecState {

	return &queryExecState{
		queryCursor:  driver,
		rootIter:     rootIter,
		iterStates:   make([]planIterState, numIterators),
		registers:    make([]types.FieldValue, numRegisters),
		externalVars: externalVars,
	}
}

func (qs *queryExecState) setState(pos int, state planIterState) {
	qs.iterStates[pos] = state
}

func (qs *queryExecState) getState(pos int) planIterState {
	return qs.iterStates[pos]
}

func (qs queryExecState) setRegValue(regID int, value types.FieldValue) {
	qs.registers[regID] = value
}

func (qs *queryExecState) getRegValue(regID int) types.FieldValue {
	return qs.registers[regID]
}

func (qs *queryExecState) getExternalVar(varID int) types.FieldValue {
	return qs.externalVars[varID]
}

// trace writes messageFormat to the query trace logger, tagged with a short
// hash of the query text, as long as level meets the logger's configured
// trace level. A no-op when tracing isn't enabled.
func (qs *queryExecState) trace(level int, messageFormat string, messageArgs ...interface{}) {
	queryLogger := qs.getClient().queryLogger
	if queryLogger == nil || level < queryLogger.traceLevel {
		return
	}

	if qs.sqlHashTag == nil {
		var sql string
		ps := qs.getRequest().PreparedStatement
		if ps != nil {
			sql = ps.sqlText
		} else {
			sql = qs.getRequest().Statement
		}
		data := md5.Sum([]byte(sql))
		// To generate a compact output, use the first 4 bytes as a tag.
		qs.sqlHashTag = data[:4]
		queryLogger.Trace("[%x] SQL: %s", qs.sqlHashTag, sql)
	}

	tag := fmt.Sprintf("[%x] ", qs.sqlHashTag)
	queryLogger.Trace(tag+messageFormat, messageArgs...)
}

func (qs *queryExecState) openIter(pos int) error {
	state := open
	qs.setState(pos, &state)
	return nil
}

func (qs *queryExecState) closeIter(pos int) error {
	state := qs.getState(pos)
	if state != nil {
		return state.close()
	}
	return nil
}

// incMemoryConsumption charges v bytes against the query's client-side memory
// budget and fails once the running total exceeds the request's configured
// maximum, so an unbounded sort or dedup pass can't exhaust client memory.
func (qs *queryExecState) incMemoryConsumption(v int64) error {
	qs.memoryConsumption += v
	if max := qs.getRequest().GetMaxMemoryConsumption(); qs.memoryConsumption > max {
		return nosqlerr.NewIllegalState("the consumed memory %d bytes at client "+
			"has exceeded the maximum of %d bytes for the query",
			qs.memoryConsumption, max)
	}

	return nil
}

func (qs *queryExecState) decMemoryConsumption(v int64) {
	qs.memoryConsumption -= v
}

func (qs *queryExecState) addConsumedCapacity(c Capacity) {
	qs.ReadKB += c.ReadKB
	qs.ReadUnits += c.ReadUnits
	qs.WriteKB += c.WriteKB
}

func (qs *queryExecState) resetConsumedCapacity() {
	qs.ReadKB = 0
	qs.ReadUnits = 0
	qs.WriteKB = 0
}

const (
	ptrSize  = 4 << (^uintptr(0) >> 63)
	hmapSize = 8 + 5*ptrSize // size of the runtime map header (hmap)
)

// sizeOf estimates, in bytes, how much client memory v occupies. The
// estimate can be off for map-typed values; it exists so queries that sort
// or deduplicate at the client have something to charge against
// incMemoryConsumption.
func sizeOf(v interface{}) int {
	return dataSize(reflect.ValueOf(v))
}

func dataSize(v reflect.Value, ignoreTypeSize ...bool) int {
	sz := int(v.Type().Size())
	if len(ignoreTypeSize) > 0 && ignoreTypeSize[0] {
		sz = 0
	}

	switch v.Kind() {
	case reflect.Ptr:
		if !v.IsNil() {
			sz += dataSize(v.Elem())
		}
		return sz

	case reflect.String:
		return sz + v.Len()

	case reflect.Slice:
		n := v.Len()
		for i := 0; i < n; i++ {
			sz += dataSize(v.Index(i))
		}

		// Account for the memory allocated for the backing array but are
		// not referenced by the slice.
		if c := v.Cap(); c > n {
			sz += int(v.Type().Elem().Size()) * (c - n)
		}
		return sz

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			f := v.Field(i)
			switch f.Kind() {
			case reflect.Ptr, reflect.Map, reflect.Slice, reflect.String:
				// Ignore the the pointer/slice header/string header size as
				// it is already counted as part of the struct size.
				sz += dataSize(f, true)
			}
		}
		return sz

	case reflect.Map:
		sz += int(hmapSize)
		for _, key := range v.MapKeys() {
			sz += dataSize(key)
			sz += dataSize(v.MapIndex(key))
		}

		// There is memory overhead for the buckets, possibly overflow buckets
		// and other internal meta data maintained for the hashtable, which is
		// not easy to calculate accurately. For simplicity, do not account for them.
		return sz

	default:
		return sz
	}
}

// topologyInfo is the slice of shard topology a query driver plan needs to
// route requests to the right shard, tagged with the sequence number it was
// current as of.
type topologyInfo struct {
	seqNum   int
	shardIDs []int
}

// equals reports whether ti and otherTopo describe the same topology
// sequence number and shard set, regardless of shard ordering.
func (ti *topologyInfo) equals(otherTopo *topologyInfo) bool {
	if ti == otherTopo {
		return true
	}

	if ti == nil || otherTopo == nil {
		return ti == otherTopo
	}

	if ti.seqNum != otherTopo.seqNum {
		return false
	}

	if ti.getNumShards() != otherTopo.getNumShards() {
		return false
	}

	sort.Ints(ti.shardIDs)
	sort.Ints(otherTopo.shardIDs)
	return reflect.DeepEqual(ti.shardIDs, otherTopo.shardIDs)
}

func (ti *topologyInfo) getNumShards() int {
	return len(ti.shardIDs)
}

func (ti *topologyInfo) getShardID(index int) int {
	return ti.shardIDs[index]
}

// dummyContKey is a placeholder continuation key used to signal "more
// results available" without encoding a real server-side cursor.
var dummyContKey = []byte{0}

// queryCursor carries the state a client-side "advanced" query (one with a
// driver-side plan, e.g. sorting, grouping or aggregation) needs across
// successive QueryRequest batches: the topology it last saw, the plan's
// execution state, and any results computed but not yet delivered to the
// caller.
type queryCursor struct {
	client  *Client
	request *QueryRequest

	// continuationKey is opaque to the caller; its presence just signals
	// whether another batch should be fetched.
	continuationKey []byte

	topologyInfo *topologyInfo

	// prepareCost is the read cost billed for preparing the statement,
	// folded into the first batch's reported capacity.
	prepareCost int

	execState *queryExecState

	// batchSize caps how many results one Client.Query call returns.
	batchSize int

	results []*types.MapValue

	// err holds a non-retryable error from a prior batch; once set, every
	// further call on this cursor fails until the caller restarts the query.
	err error
}

// newQueryCursor allocates the driver-side cursor for req and wires it back
// into req so later batches reuse the same execution state.
func newQueryCursor(req *QueryRequest) *queryCursor {
	batchSize := proto.DefaultBatchQueryNumberLimit
	if req.Limit > 0 {
		batchSize = int(req.Limit)
	}

	req.driver = &queryCursor{
		request:   req,
		batchSize: batchSize,
	}

	return req.driver
}

func (d *queryCursor) getClient() *Client {
	return d.client
}

func (d *queryCursor) getRequest() *QueryRequest {
	return d.request
}

func (d *queryCursor) getTopologyInfo() *topologyInfo {
	return d.topologyInfo
}

// setQueryResult sets the query results cached in the query driver for the
// specified QueryResult instance.
func (d *queryCursor) setQueryResult(res *QueryResult) {
	res.results = d.results
	res.continuationKey = d.continuationKey
	res.Capacity = d.execState.Capacity

	d.results = nil
	d.execState.resetConsumedCapacity()
}

// close terminates query execution.
func (d *queryCursor) close() {
	prepStmt := d.request.PreparedStatement
	if prepStmt != nil && prepStmt.driverQueryPlan != nil {
		prepStmt.driverQueryPlan.close(d.execState)
	}

	d.results = nil
}

// compute drives the client-side plan one batch forward and stores the
// results (if any) on res. It is only called for "advanced" queries that
// carry a driverQueryPlan — simple queries never reach here.
func (d *queryCursor) compute(res *QueryResult) (err error) {
	prepStmt := d.request.PreparedStatement
	if prepStmt.isSimpleQuery() {
		return nosqlerr.NewIllegalState("this is a simple query request that does not " +
			"need to be computed at client")
	}

	if d.request.driver != d {
		return nosqlerr.NewIllegalState("the query cursor is not associated with the query request")
	}

	// A previous batch failed with a non-retryable error; that error sticks
	// until the caller restarts the query with a nil continuation key.
	if d.err != nil {
		return fmt.Errorf("query request cannot be continued because the previous execution "+
			"returned a non-retryable error: %v.\nPlease set the continuation key to nil "+
			"in order to execute the query from the beginning", d.err)
	}

	// A retryable error on the previous batch may have left already-computed
	// results sitting here; hand those back rather than recomputing.
	if d.results != nil {
		d.setQueryResult(res)
		return nil
	}

	iter := prepStmt.driverQueryPlan
	if d.execState == nil {
		d.execState = newQueryExecState(d, iter, prepStmt.numIterators, prepStmt.numRegisters, prepStmt.getBoundVarValues())
		// Bill the cost of preparing the statement against the first batch.
		d.execState.ReadKB += d.prepareCost
		d.execState.ReadUnits += d.prepareCost
		err = iter.open(d.execState)
		if err != nil {
			return
		}
	}

	var more bool
	d.results = make([]*types.MapValue, 0, d.batchSize)
	for i := 0; i < d.batchSize; i++ {
		more, err = iter.next(d.execState)
		if err != nil {
			e, ok := err.(*nosqlerr.Error)
			// If this is not a retryable error, save it so that we return it
			// immediately if the application resubmits the QueryRequest.
			if !ok || !e.Retryable() {
				d.err = err
				d.results = nil
				iter.close(d.execState)
			}

			return err
		}

		if !more {
			break
		}

		res := iter.getResult(d.execState)
		mv, ok := res.(*types.MapValue)
		if !ok {
			return nosqlerr.NewIllegalState("the query result is expected to be a *types.MapValue, got %T", res)
		}

		d.results = append(d.results, mv)
	}

	if more {
		// If the query has reached the batch size limit but there are more
		// results available, set a dummy continuation key.
		d.continuationKey = dummyContKey
	} else {
		if d.execState.reachedLimit {
			d.continuationKey = dummyContKey
			d.execState.reachedLimit = false
		} else {
			state := iter.getState(d.execState)
			if state == nil || !state.isDone() {
				return nosqlerr.NewIllegalState("the query execution terminates " +
					"but the plan iterator is not in DONE state")
			}

			d.continuationKey = nil
		}
	}

	d.setQueryResult(res)
	d.request.setContKey(d.continuationKey)

	return nil
}
