// Package hanakv is a namespaced key-value store front over pluggable
// byte-store backends, built for SAP HANA.
//
// Components:
//   - store.Store: the byte-level contract (get/set/delete/clear, batch
//     variants, namespace-scoped clearing, lazy iteration, disconnect).
//   - store/hana: the primary backend; one two-column column-store table,
//     UPSERT writes, keyset-paginated iteration.
//   - store/memory, store/redis: in-process and redis backends sharing the
//     same contract.
//   - codec.Codec[V]: (de)serializes V <-> []byte (json, msgpack, cbor,
//     protobuf, raw).
//
// Keys:
//
//	<namespace>:<key>  - when the cache has a namespace
//	<key>              - when it does not
//
// The front owns namespacing and codecs; backends only ever see fully
// qualified keys and opaque bytes. There is no TTL at any layer here:
// entries persist until deleted or cleared.
package hanakv
