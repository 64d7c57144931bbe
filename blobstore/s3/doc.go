// Package s3 provides blob stores backed by Amazon S3.
//
// Store serves library files through ranged GETs, so indexed readers fetch
// only the byte ranges they need. Writes stream through multipart uploads
// with optional CRC32C checksums. ExpressStore targets S3 Express One Zone
// directory buckets and adds conditional writes; DDBCommitStore layers a
// DynamoDB-backed release pointer on top so publishers can commit manifests
// atomically.
//
// Wrap any of these stores in blobstore.NewCachingStore to keep hot blocks
// local between reads.
package s3
