package adapter

import (
	"context"
	"fmt"
	"net/http"

	"orderhub/internal/pkg/httpclient"
	"orderhub/internal/service/order/domain"
)

// Invoker 是 httpclient.Client 中适配器用到的部分。
type Invoker interface {
	Do(ctx context.Context, call httpclient.Call) (*httpclient.Response, error)
}

// remote 封装一个下游服务的调用与状态码翻译，各个 HTTP 适配器共用。
type remote struct {
	client   Invoker
	resolver httpclient.Resolver
	service  string
	notFound error
}

// call 调用下游并把 2xx 响应解码到 out（out 为 nil 时忽略响应体），解码失败与连接失败一样重试。
// 404 翻译为 notFound，其余 4xx 为 ErrBadRequest，5xx 为 ErrRemoteService。
func (r *remote) call(ctx context.Context, method, path string, body, out any) error {
	target, err := httpclient.ServiceURL(ctx, r.resolver, r.service, path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrRemoteService, r.service, err)
	}

	resp, err := r.client.Do(ctx, httpclient.Call{
		Service: r.service,
		Method:  method,
		URL:     target,
		Body:    body,
		Out:     out,
	})
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", r.notFound, method, path)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s answered %d: %s", domain.ErrRemoteService, r.service, resp.StatusCode, resp.Body)
	case resp.IsError():
		return fmt.Errorf("%w: %s answered %d: %s", domain.ErrBadRequest, r.service, resp.StatusCode, resp.Body)
	}
	return nil
}
