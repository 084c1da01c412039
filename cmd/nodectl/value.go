package main

import (
	"fmt"
	"strconv"

	"github.com/joshuapare/nodestore/node"
)

func describeValue(v node.Value) string {
	switch v.Kind {
	case node.KindInt32:
		i, _ := v.AsInt32()
		return fmt.Sprintf("int32:%d", i)
	case node.KindUint32:
		u, _ := v.AsUint32()
		return fmt.Sprintf("uint32:%d", u)
	case node.KindInt64:
		i, _ := v.AsInt64()
		return fmt.Sprintf("int64:%d", i)
	case node.KindUint64:
		u, _ := v.AsUint64()
		return fmt.Sprintf("uint64:%d", u)
	case node.KindFloat32:
		f, _ := v.AsFloat32()
		return fmt.Sprintf("float32:%v", f)
	case node.KindFloat64:
		f, _ := v.AsFloat64()
		return fmt.Sprintf("float64:%v", f)
	case node.KindFloat80:
		raw, _ := v.AsFloat80()
		return fmt.Sprintf("float80:%x", raw)
	case node.KindString:
		s, _ := v.AsString()
		return fmt.Sprintf("string:%s", s)
	case node.KindBlob:
		return fmt.Sprintf("blob:%d bytes", v.BlobSize)
	default:
		return "unknown"
	}
}

func parseValue(typ, raw string) (node.Value, error) {
	switch typ {
	case "int32":
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return node.Value{}, err
		}
		return node.Int32Value(int32(n)), nil
	case "uint32":
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return node.Value{}, err
		}
		return node.Uint32Value(uint32(n)), nil
	case "int64":
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return node.Value{}, err
		}
		return node.Int64Value(n), nil
	case "uint64":
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return node.Value{}, err
		}
		return node.Uint64Value(n), nil
	case "float32":
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return node.Value{}, err
		}
		return node.Float32Value(float32(f)), nil
	case "float64":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return node.Value{}, err
		}
		return node.Float64Value(f), nil
	case "string", "":
		return node.StringValue(raw), nil
	default:
		return node.Value{}, fmt.Errorf("unsupported --type %q", typ)
	}
}
