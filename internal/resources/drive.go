package resources

import (
	"context"

	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/params"
)

var driveFileOps = Resource{
	// upload sends the content inline as [name, base64].
	"upload": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		folderID, err := required(p, "folderId")
		if err != nil {
			return nil, err
		}
		name := p.String("fileName", "")
		res, err := rt.post(ctx, "disk.folder.uploadfile", map[string]any{
			"id":          folderID,
			"fileContent": []any{name, p.String("fileContent", "")},
			"data":        map[string]any{"NAME": name},
		})
		if err != nil {
			return nil, err
		}
		if m, ok := res.Value().(map[string]any); ok && len(m) > 0 {
			return m, nil
		}
		return map[string]any{"success": true}, nil
	},
	"get":    byID("disk.file.get", "fileId", "id", asObject),
	"delete": byID("disk.file.delete", "fileId", "id", succeeded),
	"list":   byID("disk.folder.getchildren", "folderId", "id", listed),
	"getUrl": byID("disk.file.get", "fileId", "id", func(res *client.Response) map[string]any {
		file := res.Value()
		return map[string]any{
			"downloadUrl": field(file, "DOWNLOAD_URL"),
			"name":        field(file, "NAME"),
			"size":        field(file, "SIZE"),
		}
	}),
}

var driveFolderOps = Resource{
	"create": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		parentID, err := required(p, "parentFolderId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "disk.folder.addsubfolder", map[string]any{
			"id":   parentID,
			"data": map[string]any{"NAME": p.String("folderName", "")},
		})
		if err != nil {
			return nil, err
		}
		return asObject(res), nil
	},
	"get": byID("disk.folder.get", "folderId", "id", asObject),
	"list": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "folderId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "disk.folder.getchildren", map[string]any{
			"id":     id,
			"filter": map[string]any{"TYPE": "folder"},
		})
		if err != nil {
			return nil, err
		}
		return listed(res), nil
	},
	"delete": byID("disk.folder.delete", "folderId", "id", succeeded),
	"rename": func(ctx context.Context, rt *Runtime, p params.Params) (map[string]any, error) {
		id, err := required(p, "folderId")
		if err != nil {
			return nil, err
		}
		res, err := rt.post(ctx, "disk.folder.rename", map[string]any{
			"id":      id,
			"newName": p.String("folderName", ""),
		})
		if err != nil {
			return nil, err
		}
		return succeeded(res), nil
	},
}
