package badger

import (
	"github.com/poiesic/objectdb/keys"
)

// Key prefixes for different data types. Every name segment that follows a
// prefix is written with keys.AppendString, which is self-delimiting, so a
// prefix for one database or store is never a prefix of another's.
const (
	catalogPrefix   byte = 'c'
	recordPrefix    byte = 'r'
	indexPrefix     byte = 'i'
	generatorPrefix byte = 'g'
)

// prefixEnd sorts after every key that starts with a given prefix.
const prefixEnd byte = 0xFF

// makeCatalogKey generates the key of a database's catalog entry.
// Format: c|db
func makeCatalogKey(db string) []byte {
	return keys.AppendString([]byte{catalogPrefix}, db)
}

// makeDatabasePrefix generates the prefix of every key of one kind that
// belongs to a database.
// Format: kind|db
func makeDatabasePrefix(kind byte, db string) []byte {
	return keys.AppendString([]byte{kind}, db)
}

// makeStorePrefix generates the prefix of every record of a store.
// Format: r|db|store
func makeStorePrefix(db, store string) []byte {
	return keys.AppendString(makeDatabasePrefix(recordPrefix, db), store)
}

// makeRecordKey generates a record key from an encoded primary key.
// Format: r|db|store|pk
func makeRecordKey(db, store string, pk []byte) []byte {
	return append(makeStorePrefix(db, store), pk...)
}

// makeStoreIndexPrefix generates the prefix of every index entry of a store.
// Format: i|db|store
func makeStoreIndexPrefix(db, store string) []byte {
	return keys.AppendString(makeDatabasePrefix(indexPrefix, db), store)
}

// makeIndexPrefix generates the prefix of every entry of one index.
// Format: i|db|store|index
func makeIndexPrefix(db, store, index string) []byte {
	return keys.AppendString(makeStoreIndexPrefix(db, store), index)
}

// makeIndexKey generates an index entry key. Entries sort by index key,
// then by primary key.
// Format: i|db|store|index|indexKey|pk
func makeIndexKey(db, store, index string, indexKey, pk []byte) []byte {
	buf := makeIndexPrefix(db, store, index)
	buf = append(buf, indexKey...)
	return append(buf, pk...)
}

// makeGeneratorKey generates the key holding a store's key generator.
// Format: g|db|store
func makeGeneratorKey(db, store string) []byte {
	return keys.AppendString(makeDatabasePrefix(generatorPrefix, db), store)
}

// withSuffix returns a fresh slice holding prefix followed by parts.
func withSuffix(prefix []byte, parts ...[]byte) []byte {
	n := len(prefix)
	for _, p := range parts {
		n += len(p)
	}
	buf := make([]byte, 0, n)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}
