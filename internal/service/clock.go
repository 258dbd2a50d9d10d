package service

import "time"

// timeNow is indirected so tests can pin timestamps.
var timeNow = time.Now
