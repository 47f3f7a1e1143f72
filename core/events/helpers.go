package events

import (
	"strconv"

	"creditchain/core/types"
)

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatUnix(ts int64) string {
	return strconv.FormatInt(ts, 10)
}

func identityAttr(id types.Identity) string {
	return id.Address().String()
}
