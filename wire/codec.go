package wire

import (
	"io"

	"github.com/Sergeij2000/lanes/errs"
	"github.com/Sergeij2000/lanes/str"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// 全局解码器，客户端、服务端共用
var defaultUnmarshaler = proto.UnmarshalOptions{
	AllowPartial:   true, //跳过required字段检查，因为根本没有required字段
	DiscardUnknown: true, //跳过未知字段检查
	RecursionLimit: 100,
	NoLazyDecoding: true, //禁用lazy解码, 避免buff延长生命周期
}

// 全局编码器，客户端、服务端共用
var defaultMarshaler = proto.MarshalOptions{
	AllowPartial:  true,
	Deterministic: false,
}

// 载荷用 structpb 的动态值, 槽位值域(nil/bool/number/string/list/map)刚好盖住;
// 数字统一走 float64, []byte 会退化成 base64 字符串

// EncodeRequest 编码并带上长度前缀
func EncodeRequest(req *Request) ([]byte, error) {
	vals, err := structpb.NewList(req.Vals)
	if err != nil {
		return nil, errs.Marshal.Printf("req vals: %v", err)
	}
	st := &structpb.Struct{Fields: map[string]*structpb.Value{
		"seq":     structpb.NewNumberValue(float64(req.Seq)),
		"op":      structpb.NewStringValue(req.Op),
		"linda":   structpb.NewStringValue(req.Linda),
		"key":     structpb.NewStringValue(req.Key),
		"timeout": structpb.NewNumberValue(float64(req.Timeout)),
		"count":   structpb.NewNumberValue(float64(req.Count)),
		"vals":    structpb.NewListValue(vals),
	}}
	return packMsg(st)
}

func DecodeRequest(payload []byte) (*Request, error) {
	st := &structpb.Struct{}
	if err := defaultUnmarshaler.Unmarshal(payload, st); err != nil {
		return nil, errs.Unmarshal.Printf("request: %v", err)
	}
	fs := st.GetFields()
	return &Request{
		Seq:     uint32(fs["seq"].GetNumberValue()),
		Op:      fs["op"].GetStringValue(),
		Linda:   fs["linda"].GetStringValue(),
		Key:     fs["key"].GetStringValue(),
		Timeout: int64(fs["timeout"].GetNumberValue()),
		Count:   int64(fs["count"].GetNumberValue()),
		Vals:    fs["vals"].GetListValue().AsSlice(),
	}, nil
}

// EncodeResponse 编码并带上长度前缀
func EncodeResponse(rsp *Response) ([]byte, error) {
	vals, err := structpb.NewList(rsp.Vals)
	if err != nil {
		return nil, errs.Marshal.Printf("rsp vals: %v", err)
	}
	st := &structpb.Struct{Fields: map[string]*structpb.Value{
		"seq":  structpb.NewNumberValue(float64(rsp.Seq)),
		"ok":   structpb.NewBoolValue(rsp.Ok),
		"err":  structpb.NewStringValue(rsp.Err),
		"vals": structpb.NewListValue(vals),
	}}
	return packMsg(st)
}

func DecodeResponse(payload []byte) (*Response, error) {
	st := &structpb.Struct{}
	if err := defaultUnmarshaler.Unmarshal(payload, st); err != nil {
		return nil, errs.Unmarshal.Printf("response: %v", err)
	}
	fs := st.GetFields()
	return &Response{
		Seq:  uint32(fs["seq"].GetNumberValue()),
		Ok:   fs["ok"].GetBoolValue(),
		Err:  fs["err"].GetStringValue(),
		Vals: fs["vals"].GetListValue().AsSlice(),
	}, nil
}

func packMsg(m proto.Message) ([]byte, error) {
	sz := defaultMarshaler.Size(m)
	buf := make([]byte, MsgLenSize+sz)
	data, err := defaultMarshaler.MarshalAppend(buf[MsgLenSize:MsgLenSize], m)
	if err != nil {
		return nil, errs.Marshal.Printf("%v", err)
	}
	if len(data) != sz {
		// 实际大小与预估不符, 重新拼一次
		buf = make([]byte, MsgLenSize+len(data))
		copy(buf[MsgLenSize:], data)
	}
	byteOrder.PutUint32(buf[:MsgLenSize], uint32(len(data)))
	return buf, nil
}

// ReadFrame 读一个完整帧, 返回去掉长度前缀的载荷
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [MsgLenSize]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	dataLen := byteOrder.Uint32(lenBuf[:])
	if dataLen > MaxFrameLen {
		return nil, errs.Unmarshal.Printf("frame too large: %d", dataLen)
	}
	data := make([]byte, dataLen)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EncodeValue 单值编码, redis 后端按元素存
func EncodeValue(v any) ([]byte, error) {
	pv, err := structpb.NewValue(v)
	if err != nil {
		return nil, errs.Marshal.Printf("value: %v", err)
	}
	data, err := defaultMarshaler.Marshal(pv)
	if err != nil {
		return nil, errs.Marshal.Printf("value: %v", err)
	}
	return data, nil
}

func DecodeValue(data []byte) (any, error) {
	pv := &structpb.Value{}
	if err := defaultUnmarshaler.Unmarshal(data, pv); err != nil {
		return nil, errs.Unmarshal.Printf("value: %v", err)
	}
	return pv.AsInterface(), nil
}

// DecodeValueString 零拷贝视图解码, s 的底层内存不能再改
func DecodeValueString(s string) (any, error) {
	return DecodeValue(str.StrAsBytes(s))
}
