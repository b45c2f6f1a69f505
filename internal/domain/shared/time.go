package shared

import "time"

// KST is the business time zone of every channel (UTC+9, no DST)
var KST = time.FixedZone("KST", 9*60*60)
