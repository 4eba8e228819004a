package common

// AuthorizationHeader is the HTTP header carrying the bearer credential.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the token value in the authorization header.
const BearerPrefix = "Bearer "
