package common

// APIKeyMetadataName is the gRPC metadata key that may carry the api key
// instead of the request's key field.
const APIKeyMetadataName = "api_key"

// UIDLength is the length of public account and token identifiers.
const UIDLength = 15

// TokenEntropyBytes is the number of random bytes hashed into a token key.
const TokenEntropyBytes = 32
