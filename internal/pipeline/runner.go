package pipeline

// runnerScript drives the diffusers image-to-video pipeline. It is passed to
// the interpreter with -c.
//
//	check    --model --dtype --variant --device
//	generate --model --dtype --variant --device --image --prompt --num-frames --out
//
// generate writes frame_0001.png... into --out and prints a JSON manifest as
// the last stdout line.
const runnerScript = `
import argparse
import inspect
import json
import os
import sys


def parse_args(argv):
    parser = argparse.ArgumentParser()
    parser.add_argument("mode", choices=["check", "generate"])
    parser.add_argument("--model", required=True)
    parser.add_argument("--dtype", required=True)
    parser.add_argument("--variant", required=True)
    parser.add_argument("--device", required=True)
    parser.add_argument("--image")
    parser.add_argument("--prompt", default="")
    parser.add_argument("--num-frames", type=int, default=16)
    parser.add_argument("--out")
    return parser.parse_args(argv)


def require_device(torch, device):
    if device.startswith("cuda") and not torch.cuda.is_available():
        raise SystemExit("device %s requested but CUDA is not available" % device)
    if device == "mps" and not torch.backends.mps.is_available():
        raise SystemExit("device mps requested but MPS is not available")


def check(args):
    import torch
    import diffusers

    getattr(torch, args.dtype)
    require_device(torch, args.device)
    print(json.dumps({"torch": torch.__version__, "diffusers": diffusers.__version__}))


def generate(args):
    import torch
    from diffusers import StableVideoDiffusionPipeline
    from PIL import Image

    require_device(torch, args.device)
    pipe = StableVideoDiffusionPipeline.from_pretrained(
        args.model,
        torch_dtype=getattr(torch, args.dtype),
        variant=args.variant,
    ).to(args.device)

    image = Image.open(args.image).convert("RGB")
    kwargs = {"num_frames": args.num_frames}
    if "prompt" in inspect.signature(pipe.__call__).parameters:
        kwargs["prompt"] = args.prompt
    else:
        print("pipeline does not accept a prompt; generating from the image only", file=sys.stderr)

    frames = pipe(image, **kwargs).frames
    if frames and isinstance(frames[0], (list, tuple)):
        frames = frames[0]

    os.makedirs(args.out, exist_ok=True)
    width, height = 0, 0
    for i, frame in enumerate(frames, start=1):
        frame.save(os.path.join(args.out, "frame_%04d.png" % i))
        width, height = frame.size
    print(json.dumps({"frames": len(frames), "width": width, "height": height}))


def main():
    args = parse_args(sys.argv[1:])
    if args.mode == "check":
        check(args)
    else:
        generate(args)


if __name__ == "__main__":
    main()
`
