package handler

const (
	errInternalServer = "Internal server error"
	errDNSUnavailable = "Could not resolve domain DNS, try again later"
)
